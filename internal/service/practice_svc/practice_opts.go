package practice_svc

type PracticeOpts struct {
	MaxAudioBytes *int64
	IDGenerator   func() string
}

type PracticeOpt func(opts *PracticeOpts)

func WithMaxAudioBytes(v int64) PracticeOpt {
	return func(opts *PracticeOpts) { opts.MaxAudioBytes = &v }
}

// WithIDGenerator overrides session id generation, mainly for tests.
func WithIDGenerator(v func() string) PracticeOpt {
	return func(opts *PracticeOpts) { opts.IDGenerator = v }
}
