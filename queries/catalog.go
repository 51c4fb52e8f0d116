// Package queries holds the SPARQL queries run against the Fedora 3
// resource index to survey a repository before a migration.
package queries

// A Query is a named SPARQL tuple query.
type Query struct {
	Name string
	Text string
}

const fedoraObject = "<info:fedora/fedora-system:FedoraObject-3.0>"

// Catalog lists the analysis queries in the order they are usually run.
// Each result is written to a file named after the query.
var Catalog = []Query{
	{"content_model_distribution", `
SELECT ?model (COUNT(?obj) as ?count)
FROM <#ri>
WHERE {
  ?obj <info:fedora/fedora-system:def/model#hasModel> ?model;
}
GROUP BY ?model
ORDER BY DESC(?count)
`},
	{"object_count", `
SELECT (COUNT(?obj) as ?count)
FROM <#ri>
WHERE {
  ?obj <info:fedora/fedora-system:def/model#hasModel> ` + fedoraObject + ` .
}
LIMIT 1
`},
	{"active_deleted_count", `
SELECT (COUNT(?activeObj) AS ?active) (COUNT(?deletedObj) AS ?deleted) (COUNT(?inactiveObj) AS ?inactive)
FROM <#ri>
WHERE {
  {
    SELECT ?activeObj
    WHERE {
      ?activeObj <info:fedora/fedora-system:def/model#hasModel> ` + fedoraObject + ` ;
                 <info:fedora/fedora-system:def/model#state> <info:fedora/fedora-system:def/model#Active> .
    }
  } UNION {
    SELECT ?deletedObj
    WHERE {
      ?deletedObj <info:fedora/fedora-system:def/model#hasModel> ` + fedoraObject + ` ;
                  <info:fedora/fedora-system:def/model#state> <info:fedora/fedora-system:def/model#Deleted> .
    }
  } UNION {
    SELECT ?inactiveObj
    WHERE {
      ?inactiveObj <info:fedora/fedora-system:def/model#hasModel> ` + fedoraObject + ` ;
                   <info:fedora/fedora-system:def/model#state> <info:fedora/fedora-system:def/model#Inactive> .
    }
  }
}
`},
	{"deleted_objects", `
SELECT ?obj
FROM <#ri>
WHERE {
  ?obj <info:fedora/fedora-system:def/model#hasModel> ` + fedoraObject + ` ;
       <info:fedora/fedora-system:def/model#state> <info:fedora/fedora-system:def/model#Deleted>
}
`},
	{"inactive_objects", `
SELECT ?obj
FROM <#ri>
WHERE {
  ?obj <info:fedora/fedora-system:def/model#hasModel> ` + fedoraObject + ` ;
       <info:fedora/fedora-system:def/model#state> <info:fedora/fedora-system:def/model#Inactive>
}
`},
	{"datastream_distribution", `
SELECT ?datastream (COUNT(?datastream) as ?count)
FROM <#ri>
WHERE {
  ?obj <info:fedora/fedora-system:def/model#hasModel> ` + fedoraObject + `;
  OPTIONAL {
    ?obj <info:fedora/fedora-system:def/view#disseminates> ?c .
    ?c <info:fedora/fedora-system:def/view#disseminationType> ?datastream ;
  }
}
GROUP BY ?datastream
ORDER BY DESC(?count)
`},
	{"owner_distribution", `
SELECT ?owner (COUNT(?obj) as ?count)
FROM <#ri>
WHERE {
  ?obj <info:fedora/fedora-system:def/model#ownerId> ?owner;
}
GROUP BY ?owner
ORDER BY DESC(?count)
`},
	{"collection_distribution", `
SELECT ?collection (COUNT(?obj) as ?count)
FROM <#ri>
WHERE {
  ?obj <info:fedora/fedora-system:def/relations-external#isMemberOfCollection> ?collection .
  ?collection <info:fedora/fedora-system:def/model#hasModel> ` + fedoraObject + `
}
GROUP BY ?collection
ORDER BY DESC(?count)
`},
	{"relationships", `
SELECT DISTINCT ?relationship
FROM <#ri>
WHERE {
  ?o ?relationship ?s .
  ?o <info:fedora/fedora-system:def/model#hasModel> ` + fedoraObject + `
}
`},
	{"orphaned_objects", `
SELECT DISTINCT ?object ?title
FROM <#ri>
WHERE {
  ?object <fedora-model:hasModel> ` + fedoraObject + ` ;
          <fedora-model:label> ?title .
  VALUES ?p {
    <fedora-rels-ext:isMemberOfCollection>
    <fedora-rels-ext:isMemberOf>
    <fedora-rels-ext:isConstituentOf>
  }
  ?object ?p ?otherobject .
  # the parent does not exist if it has no model
  FILTER NOT EXISTS {
    ?otherobject <fedora-model:hasModel> ?anyModel .
  }
}
ORDER BY ?object
`},
	{"mimetype_distribution", `
SELECT ?mimetype (COUNT(?mimetype) as ?count)
FROM <#ri>
WHERE {
  ?o <info:fedora/fedora-system:def/view#mimeType> ?mimetype
}
GROUP BY ?mimetype
ORDER BY DESC(?count)
`},
	{"namespace_distribution", `
SELECT ?namespace (COUNT(?namespace) as ?count)
FROM <#ri>
WHERE {
  ?obj <info:fedora/fedora-system:def/model#hasModel> ` + fedoraObject + ` .
  FILTER STRSTARTS(STR(?obj), "info:fedora/")
  BIND(STRAFTER(STR(?obj), "info:fedora/") AS ?after)
  BIND(STRBEFORE(?after, ":") AS ?namespace)
}
GROUP BY ?namespace
ORDER BY DESC(?count)
`},
}

// Lookup returns the catalog query with the given name.
func Lookup(name string) (Query, bool) {
	for _, q := range Catalog {
		if q.Name == name {
			return q, true
		}
	}
	return Query{}, false
}

// Names lists the catalog in order.
func Names() []string {
	result := make([]string, len(Catalog))
	for i, q := range Catalog {
		result[i] = q.Name
	}
	return result
}
