package catalog

import "strings"

// legacyRedirects maps URLs of the previous site to their current location.
var legacyRedirects = map[string]string{
	"/services/metalloobrabotka-v-permi":                              "/services/metalloobrabotka",
	"/service/izgotovlenie-nestandartnogo-oborudovaniya-v-permi":      "/services/izgotovlenie-detaley/izgotovlenie-nestandartnogo-oborudovaniya-v-permi",
	"/service/izgotovlenie-valov":                                     "/services/izgotovlenie-detaley/izgotovlenie-valov",
	"/service/frezernaya-obrabotka":                                   "/services/frezernaya-obrabotka",
	"/service/shlifovka-i-polirovka":                                  "/services/shlifovanie/shlifovka-i-polirovka",
	"/service/izgotovlenie-shesteren-v-permi":                         "/services/izgotovlenie-detaley/izgotovlenie-shesteren-v-permi",
	"/service/tokarnaya-obrabotka-metalla":                            "/services/tokarnaya-obrabotka-metalla",
	"/service/izgotovlenie-zubchatykh-muft":                           "/services/izgotovlenie-detaley/izgotovlenie-zubchatykh-muft",
	"/service/izgotovlenie-vencov-s-naruzhnym-zubchatym-zacepleniem":  "/services/izgotovlenie-detaley/izgotovlenie-vencov-s-naruzhnym-zubchatym-zacepleniem",
	"/service/termoobrabotka-metalla":                                 "/services/termoobrabotka-metalla",
	"/service/izgotovlenie-detaley-po-chertezham-v-permi":             "/services/izgotovlenie-detaley/izgotovlenie-detaley-po-chertezham-v-permi",
	"/service/izgotovlenie-zubchatykh-peredach":                       "/services/izgotovlenie-detaley/izgotovlenie-zubchatykh-peredach",
	"/service/shlifovka-metalla-v-permi":                              "/services/shlifovanie/shlifovka-i-polirovka",
	"/service/glubokoe-sverlenie":                                     "/services/metalloobrabotka/glubokoe-sverlenie",
	"/service/zuboreznye-raboty":                                      "/services/rezka-metalla/zuboreznye-raboty",
	"/service/rastochnye-raboty":                                      "/services/metalloobrabotka/rastochnye-raboty",
	"/service/polirovka-metalla-v-permi":                              "/services/metalloobrabotka/polirovka-metalla",
	"/services/polirovka-metalla-v-permi":                             "/services/metalloobrabotka/polirovka-metalla",
	"/service/metalloobrabotka-v-permi":                               "/services/metalloobrabotka",
	"/service/izgotovlenie-vencov-s-vnutrennim-zubchatym-zacepleniem": "/services/izgotovlenie-detaley/izgotovlenie-vencov-s-vnutrennim-zubchatym-zacepleniem",
	"/service/izgotovlenie-shesteryon":                                "/services/izgotovlenie-detaley/izgotovlenie-shesteren-v-permi",
	"/services/izgotovlenie-shesteryon":                               "/services/izgotovlenie-detaley/izgotovlenie-shesteren-v-permi",
	"/service/gibka-metalla":                                          "/services/gibka-metalla",
	"/service/galvanicheskoe-pokrytie-metalla":                        "/services/metalloobrabotka/galvanicheskoe-pokrytie-metalla",
	"/service/termoobrabotka":                                         "/services/termoobrabotka-metalla",
	"/services/termoobrabotka":                                        "/services/termoobrabotka-metalla",
	"/service":                                                        "/services",
}

// Redirect returns the permanent redirect target for path, if any. It covers
// the legacy URL table and flat /services/<sub> links to sub-services.
func (c *Catalog) Redirect(path string) (string, bool) {
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	if target, ok := legacyRedirects[path]; ok {
		return target, true
	}
	rest, ok := strings.CutPrefix(path, "/services/")
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	s, ok := c.BySlug(rest)
	if !ok || s.IsMainService {
		return "", false
	}
	if _, ok := c.Parent(s); !ok {
		return "", false
	}
	return c.CanonicalPath(s), true
}
