package importer

import "github.com/JonMunkholm/prospector/internal/prospect"

// ResolveOwnership assigns p to scope and marks it as a CSV import. After
// this call exactly one of OwnerUserID and OwnerTeamID is set.
func ResolveOwnership(p *prospect.Prospect, scope prospect.Scope) {
	scope.Apply(p)
	p.Source = prospect.SourceCSV
}
