package call

// Check inspects a value and reports the first problem it finds
type Check[T any] func(T) error

// Each applies checks to v in order, stopping at the first failure
func Each[T any](v T, checks ...Check[T]) error {
	for _, check := range checks {
		if check == nil {
			continue
		}
		if err := check(v); err != nil {
			return err
		}
	}
	return nil
}
