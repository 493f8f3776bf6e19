package server

import (
	"bytes"
	"encoding/json"
	"net/http"

	apperrors "github.com/copyleftdev/evop/internal/errors"
)

// JSON-RPC 2.0 error codes.
const (
	rpcParseError     = -32700
	rpcInvalidRequest = -32600
	rpcMethodNotFound = -32601
	rpcInvalidParams  = -32602
	rpcServerError    = -32000
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type idParams struct {
	ID             string `json:"optimization_id"`
	IncludeHistory *bool  `json:"include_history,omitempty"`
}

// handleJSONRPC handles JSON-RPC 2.0 requests
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, rpcParseError, "Parse error", nil)
		return
	}

	if request.JSONRPC != "2.0" || request.Method == "" {
		s.respondWithError(w, rpcInvalidRequest, "Invalid Request", request.ID)
		return
	}

	var result interface{}
	var err error

	switch request.Method {
	case "optimization.start":
		var params StartRequest
		if err = decodeParams(request.Params, &params); err == nil {
			result, err = s.startOptimization(params)
		}
	case "optimization.status":
		var params idParams
		if err = decodeParams(request.Params, &params); err == nil {
			withHistory := params.IncludeHistory == nil || *params.IncludeHistory
			result, err = s.optimizationStatus(params.ID, withHistory)
		}
	case "optimization.cancel":
		var params idParams
		if err = decodeParams(request.Params, &params); err == nil {
			err = s.cancelOptimization(params.ID)
			result = map[string]string{"status": "cancellation requested"}
		}
	case "optimization.objectives":
		result = s.listObjectives()
	default:
		s.respondWithError(w, rpcMethodNotFound, "Method not found", request.ID)
		return
	}

	if err != nil {
		code := rpcServerError
		if status := apperrors.StatusCode(err); status >= 400 && status < 500 {
			code = rpcInvalidParams
		}
		s.respondWithError(w, code, err.Error(), request.ID)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	})
}

// decodeParams accepts params either as an object or as an array holding
// one object.
func decodeParams(raw json.RawMessage, dst interface{}) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return apperrors.New("missing required parameters").WithStatus(http.StatusBadRequest)
	}
	if raw[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return apperrors.Wrap(err, "invalid parameter format").WithStatus(http.StatusBadRequest)
		}
		if len(list) == 0 {
			return apperrors.New("missing required parameters").WithStatus(http.StatusBadRequest)
		}
		raw = list[0]
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return apperrors.Wrap(err, "invalid parameter format, expected object").WithStatus(http.StatusBadRequest)
	}
	return nil
}

// respondWithError sends a JSON-RPC 2.0 error response
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}) {
	s.logger.Warn("RPC error", map[string]interface{}{
		"code":    code,
		"message": message,
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	})
}
