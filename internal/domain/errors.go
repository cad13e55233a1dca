package domain

import "errors"

// ErrSlugTaken is returned by article stores when an insert collides with an
// existing slug.
var ErrSlugTaken = errors.New("article slug already exists")
