package handler

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"

	"steelcraft-site/internal/metrics"
	"steelcraft-site/internal/usecase"
)

// maxLocalBody caps request bodies accepted by EventFromRequest: the total
// attachment allowance plus room for the text fields and multipart framing.
const maxLocalBody = usecase.MaxTotalSize + 1<<20

// ErrBodyTooLarge is returned by EventFromRequest for bodies over maxLocalBody.
var ErrBodyTooLarge = errors.New("handler: request body too large")

// EventFromRequest converts a plain HTTP request into the proxy event shape
// the Lambda handler expects. Non-UTF-8 bodies are base64 encoded.
func EventFromRequest(r *http.Request) (events.APIGatewayProxyRequest, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxLocalBody+1))
	if err != nil {
		return events.APIGatewayProxyRequest{}, fmt.Errorf("handler: read body: %w", err)
	}
	if len(body) > maxLocalBody {
		return events.APIGatewayProxyRequest{}, fmt.Errorf("%w: over %d bytes", ErrBodyTooLarge, maxLocalBody)
	}

	headers := make(map[string]string, len(r.Header))
	for k, v := range r.Header {
		headers[k] = strings.Join(v, ",")
	}
	query := make(map[string]string, len(r.URL.Query()))
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			query[k] = v[0]
		}
	}

	event := events.APIGatewayProxyRequest{
		HTTPMethod:            r.Method,
		Path:                  r.URL.Path,
		Headers:               headers,
		QueryStringParameters: query,
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		event.RequestContext.Identity.SourceIP = host
	}
	if utf8.Valid(body) {
		event.Body = string(body)
	} else {
		event.Body = base64.StdEncoding.EncodeToString(body)
		event.IsBase64Encoded = true
	}
	return event, nil
}

// Oversize answers a request whose body was refused by EventFromRequest. The
// contact form gets its usual validation envelope.
func (h *Handler) Oversize(path string) events.APIGatewayProxyResponse {
	if cleanPath(path) == "/api/contact" {
		h.metrics.Contact(metrics.OutcomeInvalid)
		return jsonResponse(http.StatusBadRequest, contactResponse{
			Message: msgContactInvalid,
			Errors:  []usecase.FieldError{{Field: "files", Message: usecase.MsgTotalSizeExceeded}},
		})
	}
	return jsonResponse(http.StatusRequestEntityTooLarge, errorResponse{Error: string(usecase.ErrorInvalidInput)})
}

// WriteResponse copies a proxy response onto w.
func WriteResponse(w http.ResponseWriter, resp events.APIGatewayProxyResponse) error {
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	for k, vs := range resp.MultiValueHeaders {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	body := []byte(resp.Body)
	if resp.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(resp.Body)
		if err != nil {
			return fmt.Errorf("handler: decode response body: %w", err)
		}
		body = decoded
	}
	w.WriteHeader(resp.StatusCode)
	_, err := w.Write(body)
	return err
}
