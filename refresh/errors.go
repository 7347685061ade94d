package refresh

import "errors"

// errEmptyLink is returned when an article has no permalink to rebuild
// its embed code from.
var errEmptyLink = errors.New("article has no post link")
