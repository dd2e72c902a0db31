package funcx

// MustNoError panics if the given error is not nil,
// otherwise returns the leading result.
func MustNoError[T any](t T, err error) T {
	if err != nil {
		panic(err)
	}
	return t
}

// NoError ignores the given error and returns the leading result.
func NoError[T any](t T, _ error) T {
	return t
}
