package preference

// Option applies a configuration option to a Set.
type Option func(*Set)

// WithWeights rebuilds the built-in functions with w. Apply it before any
// WithJudging/WithRankingMatch/WithPracticeMatch override.
func WithWeights(w Weights) Option {
	return func(s *Set) {
		s.judging = Judging(w)
		s.rankingMatch = RankingMatch(w)
		s.practiceMatch = PracticeMatch(w)
	}
}

// WithJudging overrides the judging session rating function.
func WithJudging(f Func) Option {
	return func(s *Set) {
		if f != nil {
			s.judging = f
		}
	}
}

// WithRankingMatch overrides the ranking match rating function.
func WithRankingMatch(f Func) Option {
	return func(s *Set) {
		if f != nil {
			s.rankingMatch = f
		}
	}
}

// WithPracticeMatch overrides the practice match rating function.
func WithPracticeMatch(f Func) Option {
	return func(s *Set) {
		if f != nil {
			s.practiceMatch = f
		}
	}
}

// WithAll uses f for every kind. Handy in tests.
func WithAll(f Func) Option {
	return func(s *Set) {
		if f != nil {
			s.judging = f
			s.rankingMatch = f
			s.practiceMatch = f
		}
	}
}
