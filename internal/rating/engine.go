package rating

import "librarymanager/internal/entity"

type Engine struct {
	strategy Strategy
}

func NewEngine(strategy Strategy) *Engine {
	if strategy == "" {
		strategy = StrategyRecompute
	}
	return &Engine{strategy: strategy}
}

func (e *Engine) Strategy() Strategy {
	return e.strategy
}

// Apply records score against book and updates book.Score. It must run before
// the returning user is added to book.Returners.
func (e *Engine) Apply(book *entity.Book, score entity.Score) error {
	if err := Validate(score.Value); err != nil {
		return err
	}

	switch e.strategy {
	case StrategyIncremental:
		book.Score = Incremental(book.Score, len(book.Returners), score.Value)
	default:
		book.Scores = append(book.Scores, score)
		book.Score = Mean(book.Scores)
	}
	return nil
}
