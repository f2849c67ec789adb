package httpadmin

import (
	"encoding/json"
	"net/http"

	"github.com/antigravity-dev/banking-platform/internal/apierrors"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Errorf(err, "failed to encode response body")
	}
}

// writeError is the single place a service error becomes an HTTP
// response. Services never write to http.ResponseWriter directly.
func writeError(w http.ResponseWriter, err error) {
	apiErr, ok := apierrors.As(err)
	if !ok {
		apiErr = apierrors.Model(err, "internal error")
	}
	envelope := map[string]string{"detail": apiErr.Detail}
	if apiErr.Info != "" {
		envelope["info"] = apiErr.Info
	}
	writeJSON(w, apiErr.Kind.HTTPStatus(), envelope)
}

func decodeJSONBody(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return apierrors.Validation("invalid JSON body: %v", err)
	}
	return nil
}
