package model

import "encoding/json"

// Project is a hosted project as reported by the source platform.
// The platform attaches arbitrary extra attributes to project objects;
// anything we do not model explicitly lands in Extra so it is neither
// silently dropped nor allowed to turn the type into an open-ended record.
type Project struct {
	ID        string
	Name      string
	Framework string
	Repo      *RepositoryDescriptor
	Extra     map[string]any
}

// projectKnownFields lists the top-level JSON keys that map onto typed
// Project fields. Everything else is collected into Extra.
var projectKnownFields = map[string]bool{
	"id":        true,
	"name":      true,
	"framework": true,
	"link":      true,
}

// UnmarshalJSON decodes the known fields and collects unrecognized
// attributes into Extra.
func (p *Project) UnmarshalJSON(data []byte) error {
	var known struct {
		ID        string                `json:"id"`
		Name      string                `json:"name"`
		Framework string                `json:"framework"`
		Link      *RepositoryDescriptor `json:"link"`
	}
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	extra := make(map[string]any)
	for key, val := range raw {
		if projectKnownFields[key] {
			continue
		}
		var v any
		if err := json.Unmarshal(val, &v); err != nil {
			return err
		}
		extra[key] = v
	}

	p.ID = known.ID
	p.Name = known.Name
	p.Framework = known.Framework
	p.Repo = known.Link
	p.Extra = extra
	return nil
}

// RepositoryDescriptor describes the repository a project deploys from.
// The platform returns either a direct shape (URL plus default branch) or a
// provider-link shape (type, org, repo slug, production branch) that must be
// normalized before cloning.
type RepositoryDescriptor struct {
	Type             string `json:"type"`
	URL              string `json:"url,omitempty"`
	Org              string `json:"org,omitempty"`
	RepoSlug         string `json:"repo,omitempty"`
	DefaultBranch    string `json:"defaultBranch,omitempty"`
	ProductionBranch string `json:"productionBranch,omitempty"`
}

// EnvVar is one environment variable configured on the source platform.
type EnvVar struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Target string `json:"target"`
}
