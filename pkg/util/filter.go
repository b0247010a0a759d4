package util

// InPlaceFilter keeps the elements for which keep returns true, reusing the backing array
func InPlaceFilter[T any](s *[]T, keep func(T) bool) {
	i := 0
	for _, e := range *s {
		if keep(e) {
			(*s)[i] = e
			i++
		}
	}
	*s = (*s)[:i]
}

// Truncate drops everything past max elements
func Truncate[T any](s *[]T, max int) {
	if max >= 0 && len(*s) > max {
		*s = (*s)[:max]
	}
}
