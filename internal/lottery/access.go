package lottery

// RequireSameIdentity fails with ErrUnauthorized unless actual is expected.
//
// It is a pure precondition: callers run it on every authority-gated operation
// before touching pool state.
func RequireSameIdentity(expected, actual string) error {
	if expected == "" || expected != actual {
		return ErrUnauthorized.Wrapf("caller %q is not %q", actual, expected)
	}
	return nil
}
