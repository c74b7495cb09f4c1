package graphstore

// RepositoryParam is one named parameter of a GraphDB repository config.
type RepositoryParam struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// RepositoryConfig is the body of POST /rest/repositories.
type RepositoryConfig struct {
	ID     string                     `json:"id"`
	Title  string                     `json:"title"`
	Type   string                     `json:"type"`
	Params map[string]RepositoryParam `json:"params"`
}

// NewRepositoryConfig builds a file-repository config with literal, context
// and predicate-list indexes enabled and owl:sameAs disabled.
func NewRepositoryConfig(desc RepositoryDescriptor) RepositoryConfig {
	desc = desc.WithDefaults()

	params := []RepositoryParam{
		{Name: "baseURL", Label: "Base URL", Value: "http://example.org/owlim#"},
		{Name: "defaultNS", Label: "Default namespaces for imports(';' delimited)", Value: ""},
		{Name: "imports", Label: "Imported RDF files(';' delimited)", Value: ""},
		{Name: "ruleset", Label: "Ruleset", Value: desc.Ruleset},
		{Name: "storageFolder", Label: "Storage folder", Value: "storage"},
		{Name: "repositoryType", Label: "Repository type", Value: "file-repository"},
		{Name: "checkForInconsistencies", Label: "Enable consistency checks", Value: "false"},
		{Name: "disableSameAs", Label: "Disable owl:sameAs", Value: "true"},
		{Name: "enablePredicateList", Label: "Enable predicate list index", Value: "true"},
		{Name: "enableLiteralIndex", Label: "Enable literal index", Value: "true"},
		{Name: "enableContextIndex", Label: "Enable context index", Value: "true"},
		{Name: "readOnly", Label: "Read-only", Value: "false"},
	}

	cfg := RepositoryConfig{
		ID:     desc.ID,
		Title:  desc.Title,
		Type:   "graphdb",
		Params: make(map[string]RepositoryParam, len(params)),
	}
	for _, p := range params {
		cfg.Params[p.Name] = p
	}
	return cfg
}
