package question

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// OpenTDB fetches boolean questions from an Open Trivia Database compatible
// endpoint.
type OpenTDB struct {
	baseURL string
	client  *http.Client
}

func NewOpenTDB(baseURL string, timeout time.Duration) *OpenTDB {
	return &OpenTDB{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type openTDBResponse struct {
	ResponseCode int `json:"response_code"`
	Results      []struct {
		Question      string `json:"question"`
		CorrectAnswer string `json:"correct_answer"`
	} `json:"results"`
}

func (o *OpenTDB) Fetch(ctx context.Context, amount int) ([]Question, error) {
	u, err := url.Parse(o.baseURL)
	if err != nil {
		return nil, fmt.Errorf("opentdb: parse url: %w", err)
	}
	query := u.Query()
	query.Set("amount", strconv.Itoa(amount))
	query.Set("type", "boolean")
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("opentdb: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("opentdb: unexpected status %d", resp.StatusCode)
	}

	var body openTDBResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("opentdb: decode: %w", err)
	}
	if body.ResponseCode != 0 {
		return nil, fmt.Errorf("opentdb: response code %d", body.ResponseCode)
	}

	questions := make([]Question, 0, len(body.Results))
	for _, r := range body.Results {
		questions = append(questions, Question{
			Text:          html.UnescapeString(r.Question),
			CorrectAnswer: r.CorrectAnswer,
		})
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	return questions, nil
}
