// internal/objectstore/mapping.go
package objectstore

// schemaVersion is recorded in the mapping _meta block. Upgrades are
// additive only so already-indexed documents stay readable.
const schemaVersion = 1

// indexMappings is the mapping applied both at index creation and, once
// per process lifetime, as an additive update against an existing index.
const indexMappings = `{
  "_meta": {
    "schema_version": 1
  },
  "dynamic": "false",
  "properties": {
    "createdTimeMs": {"type": "date", "format": "epoch_millis"},
    "updatedTimeMs": {"type": "date", "format": "epoch_millis"},
    "tenant": {"type": "keyword"},
    "access": {"type": "keyword"},
    "type": {"type": "keyword"},
    "note": {
      "properties": {
        "title": {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
        "content": {"type": "text"},
        "category": {"type": "keyword"}
      }
    },
    "annotation": {
      "properties": {
        "subject": {"type": "keyword"},
        "body": {"type": "text"},
        "targetId": {"type": "keyword"},
        "startTimeMs": {"type": "date", "format": "epoch_millis"},
        "endTimeMs": {"type": "date", "format": "epoch_millis"}
      }
    },
    "savedQuery": {
      "properties": {
        "name": {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
        "query": {"type": "text"},
        "queryLang": {"type": "keyword"},
        "fields": {"type": "keyword"}
      }
    },
    "workspace": {
      "properties": {
        "name": {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
        "description": {"type": "text"},
        "kind": {"type": "keyword"},
        "memberIds": {"type": "keyword"}
      }
    }
  }
}`

// indexSettings is the full creation bundle: settings plus mappings.
const indexSettings = `{
  "settings": {
    "index": {
      "number_of_shards": 1,
      "auto_expand_replicas": "0-2"
    }
  },
  "mappings": ` + indexMappings + `
}`

// allowedFilterParams maps recognized filter parameter names to the
// keyword field each one filters on. Keys outside this map are ignored,
// never errors, so callers can send forward-compatible parameters.
var allowedFilterParams = map[string]string{
	"category":  "note.category",
	"subject":   "annotation.subject",
	"targetId":  "annotation.targetId",
	"queryLang": "savedQuery.queryLang",
	"kind":      "workspace.kind",
	"name":      "savedQuery.name.keyword",
}
