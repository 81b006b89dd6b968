package types

type SessionRequest struct {
	Name string `json:"name"`
}

type SessionResponse struct {
	SessionID string       `json:"sessionId"`
	Name      string       `json:"name"`
	Greeting  string       `json:"greeting"`
	Menu      []MenuOption `json:"menu"`
}

type ChatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

type ChatResponse struct {
	SessionID      string       `json:"sessionId"`
	Reply          string       `json:"reply"`
	Acknowledgment string       `json:"acknowledgment,omitempty"`
	Intent         string       `json:"intent"`
	Sentiment      string       `json:"sentiment"`
	Suggestions    []string     `json:"suggestions"`
	Menu           []MenuOption `json:"menu,omitempty"`
	Terminated     bool         `json:"terminated"`
}

type MenuOption struct {
	Key    string `json:"key"`
	Title  string `json:"title"`
	Intent string `json:"intent"`
}

type MenuResponse struct {
	Header  string       `json:"header"`
	Options []MenuOption `json:"options"`
}

type ClassifyRequest struct {
	Message string `json:"message"`
}

// ClassifyResponse exposes the classifier's view of an utterance without
// running a turn.
type ClassifyResponse struct {
	Message      string `json:"message"`
	Preprocessed string `json:"preprocessed"`
	Intent       string `json:"intent"`
	Predicted    string `json:"predicted,omitempty"`
	Score        int    `json:"score"`
	Match        string `json:"match,omitempty"`
	Sentiment    string `json:"sentiment"`
	FromMenu     bool   `json:"fromMenu"`
	Resolved     bool   `json:"resolved"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
