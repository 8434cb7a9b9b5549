package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"time"

	"github.com/seanmcgon/McTrivia/internal/game"
)

// ProviderError reports a failed question-bank fetch. Status carries either
// the HTTP status or the provider's own response code; rooms see it verbatim
// in the question_error broadcast.
type ProviderError struct {
	HTTPStatus   int
	ResponseCode int
}

func (e *ProviderError) Error() string {
	if e.HTTPStatus != http.StatusOK && e.HTTPStatus != 0 {
		return fmt.Sprintf("question provider returned HTTP %d", e.HTTPStatus)
	}
	return fmt.Sprintf("question provider returned code %d", e.ResponseCode)
}

type triviaResponse struct {
	ResponseCode int `json:"response_code"`
	Results      []struct {
		Question         string   `json:"question"`
		CorrectAnswer    string   `json:"correct_answer"`
		IncorrectAnswers []string `json:"incorrect_answers"`
	} `json:"results"`
}

// fetchQuestions pulls a fresh batch of multiple-choice questions from the
// configured Open Trivia DB-compatible endpoint. Fields arrive HTML-encoded
// and are unescaped before use.
func (s *Server) fetchQuestions(ctx context.Context) ([]game.Question, error) {
	url := fmt.Sprintf("%s?amount=%d&type=multiple", s.cfg.TriviaURL, s.cfg.QuestionsPerRound)

	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build question request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reach question provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{HTTPStatus: resp.StatusCode}
	}

	var parsed triviaResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode question response: %w", err)
	}
	if parsed.ResponseCode != 0 {
		return nil, &ProviderError{HTTPStatus: http.StatusOK, ResponseCode: parsed.ResponseCode}
	}
	if len(parsed.Results) == 0 {
		return nil, &ProviderError{HTTPStatus: http.StatusOK}
	}

	questions := make([]game.Question, 0, len(parsed.Results))
	for _, result := range parsed.Results {
		others := make([]string, 0, len(result.IncorrectAnswers))
		for _, answer := range result.IncorrectAnswers {
			others = append(others, html.UnescapeString(answer))
		}
		questions = append(questions, game.Question{
			Text:          html.UnescapeString(result.Question),
			CorrectAnswer: html.UnescapeString(result.CorrectAnswer),
			OtherAnswers:  others,
		})
	}
	return questions, nil
}
