package fixture

import (
	"github.com/mockforge/mockforge-go/internal/matcher"
	"github.com/mockforge/mockforge-go/pkg/model"
)

// FromCustomFixture converts the legacy flat HTTP fixture form into a
// UnifiedFixture (§3, §6 fixture file format).
func FromCustomFixture(cf model.CustomFixture) *model.UnifiedFixture {
	path := matcher.NormalizePath(cf.Path)
	method := cf.Method
	return &model.UnifiedFixture{
		Name:     method + " " + path,
		Protocol: model.ProtocolHTTP,
		Enabled:  true,
		Match: model.FixtureMatch{
			Operation: &method,
			Path:      &path,
		},
		Response: model.FixtureResponseTemplate{
			Status:      model.FixtureStatus{Kind: model.FixtureStatusHTTP, HTTPCode: uint16(cf.Status)},
			Body:        cf.Response,
			Headers:     cf.Headers,
			ContentType: "application/json",
			DelayMS:     cf.DelayMS,
		},
	}
}

// MatchLegacy finds the CustomFixture whose method+path-template matches
// the given method and concrete path, for the legacy flat-HTTP surface.
func MatchLegacy(fixtures []model.CustomFixture, method, path string) (*model.CustomFixture, map[string]string) {
	norm := matcher.NormalizePath(path)
	for i := range fixtures {
		cf := &fixtures[i]
		if cf.Method != method {
			continue
		}
		if params := matcher.PathTemplateParams(cf.Path, norm); params != nil {
			return cf, params
		}
	}
	return nil, nil
}
