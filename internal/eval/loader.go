package eval

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/haasonsaas/nqbench/internal/tabular"
	"github.com/haasonsaas/nqbench/pkg/models"
)

// QuestionColumns names the columns of an examples table.
type QuestionColumns struct {
	Query     string `yaml:"query" json:"query"`
	DocID     string `yaml:"doc_id" json:"doc_id"`
	ElementID string `yaml:"element_id,omitempty" json:"element_id,omitempty"`
}

// DefaultQuestionColumns matches the processed Natural Questions examples table.
func DefaultQuestionColumns() QuestionColumns {
	return QuestionColumns{Query: "query", DocID: "doc_id", ElementID: "context_id"}
}

// LoadQuestions reads every question from r in table order. The element
// column is optional: when empty, questions carry no gold passage id and
// can only be scored with MatchDocument.
func LoadQuestions(ctx context.Context, r tabular.Reader, cols QuestionColumns) ([]models.Question, error) {
	if cols.Query == "" || cols.DocID == "" {
		return nil, fmt.Errorf("query and doc id columns are required")
	}
	if err := tabular.RequireColumns(r, cols.Query, cols.DocID, cols.ElementID); err != nil {
		return nil, err
	}

	var questions []models.Question
	for {
		row, err := r.Next(ctx)
		if errors.Is(err, io.EOF) {
			return questions, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read question %d: %w", len(questions), err)
		}

		q := models.Question{Index: len(questions)}
		if q.Text, err = tabular.Field(row, cols.Query); err != nil {
			return nil, err
		}
		if q.DocID, err = tabular.Field(row, cols.DocID); err != nil {
			return nil, err
		}
		if cols.ElementID != "" {
			if q.ElementID, err = tabular.Field(row, cols.ElementID); err != nil {
				return nil, err
			}
		}
		questions = append(questions, q)
	}
}
