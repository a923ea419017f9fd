package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mockforge/mockforge-go/pkg/model"
)

// WorkspaceConfig is the structured, file-backed settings a flat env-map
// cannot express: declared environments, promotion approval rules, and the
// optional GitOps provider (§4.6).
type WorkspaceConfig struct {
	Environments  []string          `yaml:"environments"`
	ApprovalRules WorkspaceApproval `yaml:"approval_rules"`
	GitOps        *WorkspaceGitOps  `yaml:"gitops"`
}

// WorkspaceApproval mirrors model.ApprovalRules in the YAML wire shape.
type WorkspaceApproval struct {
	TagToEnvironment        map[string]string `yaml:"tag_to_environment"`
	RequireDistinctApprover bool              `yaml:"require_distinct_approver"`
}

// WorkspaceGitOps names the GitOps provider and target repository a
// promotion's completion hook should create a pull request against.
type WorkspaceGitOps struct {
	Provider   string `yaml:"provider"`
	Repository string `yaml:"repository"`
	BaseBranch string `yaml:"base_branch"`
}

// LoadWorkspace reads and parses a workspace config file. A missing path
// (empty string) or missing file returns (nil, nil) — the workspace config
// is wholly optional (§4.6's GitOps hook is "optional").
func LoadWorkspace(path string) (*WorkspaceConfig, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, model.Wrap(model.ErrInternal, err, "read workspace config %q", path)
	}
	var wc WorkspaceConfig
	if err := yaml.Unmarshal(raw, &wc); err != nil {
		return nil, model.Wrap(model.ErrValidation, err, "invalid workspace config %q", path)
	}
	return &wc, nil
}

// ApprovalRulesModel converts the YAML shape into the model.ApprovalRules the
// promotion service consumes.
func (wc *WorkspaceConfig) ApprovalRulesModel() model.ApprovalRules {
	if wc == nil {
		return model.ApprovalRules{}
	}
	rules := model.ApprovalRules{
		RequireDistinctApprover: wc.ApprovalRules.RequireDistinctApprover,
		TagToEnvironment:        make(map[string]model.MockEnvironmentName, len(wc.ApprovalRules.TagToEnvironment)),
	}
	for tag, env := range wc.ApprovalRules.TagToEnvironment {
		rules.TagToEnvironment[tag] = model.MockEnvironmentName(env)
	}
	return rules
}
