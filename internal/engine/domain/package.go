// Package domain defines the engine's data model as seen by the gateway: packages,
// their processes and decisions, engine metadata, artifacts and request bodies.
package domain

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultArtifactMediaType is used when the engine omits a content type.
const DefaultArtifactMediaType = "application/xml"

// Engine modes reported by the engine meta endpoint.
const (
	EngineModePackages  = "packages"
	EngineModeWorkspace = "workspace"
)

// Process is an executable process published by a package.
type Process struct {
	ID             string   `json:"id"`
	BpmnProcessID  string   `json:"bpmnProcessId"`
	Label          string   `json:"label,omitempty"`
	RequiredClaims []string `json:"requiredClaims,omitempty"`
}

// Decision is an evaluable decision published by a package.
type Decision struct {
	ID             string   `json:"id"`
	DmnDecisionID  string   `json:"dmnDecisionId"`
	Label          string   `json:"label,omitempty"`
	RequiredClaims []string `json:"requiredClaims,omitempty"`
}

// Package is a versioned unit of process/decision definitions hosted by the engine.
// Packages are fetched once at startup and treated as immutable afterwards.
type Package struct {
	PackageID      string     `json:"packageId"`
	Version        string     `json:"version"`
	Name           string     `json:"name,omitempty"`
	Description    string     `json:"description,omitempty"`
	Tags           []string   `json:"tags,omitempty"`
	Domain         string     `json:"domain,omitempty"`
	Processes      []Process  `json:"processes"`
	Decisions      []Decision `json:"decisions"`
	RequiredClaims []string   `json:"requiredClaims,omitempty"`
}

// FindProcess looks up a process by its id or its BPMN process id.
func (p *Package) FindProcess(id string) (*Process, bool) {
	for i := range p.Processes {
		if p.Processes[i].ID == id || p.Processes[i].BpmnProcessID == id {
			return &p.Processes[i], true
		}
	}
	return nil, false
}

// FindDecision looks up a decision by its id or its DMN decision id.
func (p *Package) FindDecision(id string) (*Decision, bool) {
	for i := range p.Decisions {
		if p.Decisions[i].ID == id || p.Decisions[i].DmnDecisionID == id {
			return &p.Decisions[i], true
		}
	}
	return nil, false
}

// HasTag reports whether the package carries the given tag.
func (p *Package) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// MatchesQuery performs a case-insensitive substring match over name and description.
func (p *Package) MatchesQuery(q string) bool {
	needle := strings.ToLower(q)
	return strings.Contains(strings.ToLower(p.Name), needle) ||
		strings.Contains(strings.ToLower(p.Description), needle)
}

// Meta is the free-form engine metadata document.
type Meta map[string]any

// Mode returns the engine mode advertised in the metadata, or "" when absent or unknown.
func (m Meta) Mode() string {
	mode, _ := m["mode"].(string)
	switch mode {
	case EngineModePackages, EngineModeWorkspace:
		return mode
	}
	return ""
}

// Artifact is a raw artifact payload together with the engine response headers.
type Artifact struct {
	Data   []byte
	Header http.Header
}

// ContentType returns the artifact media type as labeled by the engine.
func (a *Artifact) ContentType() string {
	if a.Header == nil {
		return ""
	}
	return a.Header.Get("Content-Type")
}

// MediaType returns the engine-reported media type, or DefaultArtifactMediaType.
func (a *Artifact) MediaType() string {
	if ct := a.ContentType(); ct != "" {
		return ct
	}
	return DefaultArtifactMediaType
}

// IsJSON reports whether the artifact is labeled as JSON.
func (a *Artifact) IsJSON() bool {
	ct := strings.ToLower(a.ContentType())
	return strings.Contains(ct, "application/json") || strings.Contains(ct, "+json")
}

// Base64 returns the payload encoded with standard base64.
func (a *Artifact) Base64() string {
	return base64.StdEncoding.EncodeToString(a.Data)
}

// ParseManifest decodes the payload as a manifest document. JSON is tried
// first, then YAML when the engine labels the payload as YAML.
func (a *Artifact) ParseManifest() (any, bool) {
	var doc any
	if err := json.Unmarshal(a.Data, &doc); err == nil {
		return doc, true
	}

	if strings.Contains(strings.ToLower(a.ContentType()), "yaml") {
		var ydoc any
		if err := yaml.Unmarshal(a.Data, &ydoc); err == nil && ydoc != nil {
			return ydoc, true
		}
	}

	return nil, false
}

// Manifest returns the decoded manifest, or {"raw": text} when the payload
// cannot be decoded.
func (a *Artifact) Manifest() any {
	if doc, ok := a.ParseManifest(); ok {
		return doc
	}
	return map[string]any{"raw": string(a.Data)}
}

// ProcessExecutionRequest is the body of POST /uapf/execute-process.
type ProcessExecutionRequest struct {
	PackageID string `json:"packageId"`
	ProcessID string `json:"processId"`
	Input     any    `json:"input"`
}

// DecisionEvaluationRequest is the body of POST /uapf/evaluate-decision.
type DecisionEvaluationRequest struct {
	PackageID  string `json:"packageId"`
	DecisionID string `json:"decisionId"`
	Input      any    `json:"input"`
}

// ResolveResourcesRequest is the body of POST /uapf/resolve-resources.
type ResolveResourcesRequest struct {
	PackageID string `json:"packageId"`
	ProcessID string `json:"processId,omitempty"`
	TaskID    string `json:"taskId,omitempty"`
}

// ValidationRequest is the body of POST /uapf/validate. An empty PackageID
// validates the whole workspace.
type ValidationRequest struct {
	PackageID string `json:"packageId,omitempty"`
}
