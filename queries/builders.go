package queries

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrBadTerm means a value could not be placed inside a query without
// changing its meaning.
var ErrBadTerm = errors.New("Value not allowed in query")

// checkTerm rejects values which would end an IRI or string literal early.
func checkTerm(kind, s string) error {
	if s == "" {
		return errors.Wrapf(ErrBadTerm, "empty %s", kind)
	}
	if strings.ContainsAny(s, "<>\"{}\\ \t\r\n") {
		return errors.Wrapf(ErrBadTerm, "%s %q", kind, s)
	}
	return nil
}

// ObjectsWithDatastream returns a query for every object with a datastream
// dsid, not counting the system content models. The result has one column,
// obj.
func ObjectsWithDatastream(dsid string) (string, error) {
	if err := checkTerm("datastream id", dsid); err != nil {
		return "", err
	}
	return fmt.Sprintf(`
SELECT ?obj WHERE {
  ?obj <fedora-model:hasModel> %s;
       <fedora-model:hasModel> ?model;
       <fedora-view:disseminates> ?ds.
  ?ds <fedora-view:disseminationType> <info:fedora/*/%s>
  FILTER(!sameTerm(?model, %s))
  FILTER(!sameTerm(?model, <info:fedora/fedora-system:ContentModel-3.0>))
}
`, fedoraObject, dsid, fedoraObject), nil
}

// ContentModels returns a query listing every content model in use apart
// from the two every object has. The result has one column, model.
func ContentModels() string {
	return `
SELECT DISTINCT ?model WHERE {
  ?obj <fedora-model:hasModel> ?model .
  FILTER(!sameTerm(?model, ` + fedoraObject + `))
  FILTER(!sameTerm(?model, <info:fedora/fedora-system:ContentModel-3.0>))
}
`
}

// SamplePID returns a query for a single object having the content model
// model and a datastream dsid. The result has the columns obj, model and
// dsid. The model may be given with or without the "info:fedora/" prefix.
func SamplePID(model, dsid string) (string, error) {
	if err := checkTerm("content model", model); err != nil {
		return "", err
	}
	if err := checkTerm("datastream id", dsid); err != nil {
		return "", err
	}
	if !strings.HasPrefix(model, "info:fedora/") {
		model = "info:fedora/" + model
	}
	return fmt.Sprintf(`
SELECT ?obj ?model ?dsid WHERE {
  ?obj <fedora-model:hasModel> <%s> ;
       <fedora-view:disseminates> ?ds .
  ?ds <fedora-view:disseminationType> <info:fedora/*/%s> .
  BIND(<%s> AS ?model)
  BIND("%s" AS ?dsid)
} LIMIT 1
`, model, dsid, model, dsid), nil
}
