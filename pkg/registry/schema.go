// pkg/registry/schema.go
package registry

type FunctionRegistry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Functions   []Function `json:"functions"`
}

type Function struct {
	Name           string   `json:"name"`
	DisplayName    string   `json:"displayName"`
	Description    string   `json:"description"`
	Category       string   `json:"category"`
	Path           string   `json:"path"`
	Method         string   `json:"method"`
	RequiredFields []string `json:"requiredFields"`
	ErrorCodes     []string `json:"errorCodes"`
	Timeout        string   `json:"timeout"`
	RateLimit      int      `json:"rateLimit"`
	Tags           []string `json:"tags"`
}
