package rest

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"bcp-export/internal/service"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

type rawClientRequest struct {
	Env      interface{} `json:"env"`
	ClientID interface{} `json:"client_id"`
	Client   interface{} `json:"client"`
}

// ValidateClientRequest decodes a leads or efforts request. The client is
// picked by client_id, or by name when no id is given.
func ValidateClientRequest(r *http.Request) (*service.ClientRequest, error) {
	var raw rawClientRequest
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil && err != io.EOF {
		return nil, &ValidationError{Message: "request body must be a JSON object"}
	}

	env, err := toString(raw.Env)
	if err != nil || env == "" {
		return nil, &ValidationError{Field: "env", Message: "env is required"}
	}

	clientID, err := toInt64(raw.ClientID)
	if err != nil || clientID < 0 {
		return nil, &ValidationError{Field: "client_id", Message: "client_id must be a positive integer or empty"}
	}

	client, err := toString(raw.Client)
	if err != nil {
		return nil, &ValidationError{Field: "client", Message: "client must be a string or empty"}
	}
	if clientID == 0 && client == "" {
		return nil, &ValidationError{Field: "client_id", Message: "client_id or client is required"}
	}

	return &service.ClientRequest{
		Env:      strings.ToUpper(env),
		ClientID: clientID,
		Client:   client,
	}, nil
}

type rawAmeyoRequest struct {
	Database interface{} `json:"database"`
}

func ValidateAmeyoRequest(r *http.Request) (*service.AmeyoRequest, error) {
	var raw rawAmeyoRequest
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil && err != io.EOF {
		return nil, &ValidationError{Message: "request body must be a JSON object"}
	}

	database, err := toString(raw.Database)
	if err != nil || database == "" {
		return nil, &ValidationError{Field: "database", Message: "database is required"}
	}
	if !strings.HasPrefix(database, "cms_") {
		return nil, &ValidationError{Field: "database", Message: "database must be a cms_ campaign database"}
	}
	return &service.AmeyoRequest{Database: database}, nil
}

func toString(v interface{}) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(t), nil
	case float64:
		return strconv.FormatInt(int64(t), 10), nil
	default:
		return "", &ValidationError{Message: "invalid type for string field"}
	}
}

func toInt64(v interface{}) (int64, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return int64(t), nil
	case string:
		if t == "" {
			return 0, nil
		}
		return strconv.ParseInt(t, 10, 64)
	default:
		return 0, &ValidationError{Message: "invalid type for int field"}
	}
}
