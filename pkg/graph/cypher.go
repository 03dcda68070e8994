package graph

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultRelationshipType replaces identifiers that sanitize to nothing.
const DefaultRelationshipType = "RELATED_TO"

// Query is a parameterised Cypher statement.
type Query struct {
	Cypher string
	Params map[string]any
}

var (
	nonIdentRe    = regexp.MustCompile(`[^a-zA-Z0-9_]`)
	underscoresRe = regexp.MustCompile(`_+`)
)

// SanitizeIdentifier turns free text into a safe label or relationship type:
// anything outside [A-Za-z0-9_] becomes "_", runs of "_" collapse, the result
// is trimmed and upper-cased. "CEO of Company" becomes "CEO_OF_COMPANY".
func SanitizeIdentifier(s string) string {
	if s == "" {
		return DefaultRelationshipType
	}
	clean := nonIdentRe.ReplaceAllString(s, "_")
	clean = strings.ToUpper(strings.Trim(underscoresRe.ReplaceAllString(clean, "_"), "_"))
	if clean == "" {
		return DefaultRelationshipType
	}
	return clean
}

const topicArticleCypher = `
MERGE (t:Topic {name: $topic_name})
ON CREATE SET
    t.category = $category,
    t.created_at = datetime()

MERGE (a:Article {id: $article_id})
ON CREATE SET
    a.name = $article_title,
    a.date = $article_date,
    a.text_preview = $article_text_preview,
    a.created_at = datetime()

MERGE (a)-[:COVERS]->(t)
`

const entityCypherTemplate = `
MERGE (e:Entity:%s {name: $name})

ON CREATE SET
    e.description = $description,
    e.original_label = $label_raw

ON MATCH SET
    e.description = CASE
        WHEN (e.description IS NULL OR e.description = "") AND ($description IS NOT NULL AND $description <> "")
        THEN $description
        ELSE e.description
    END

WITH e
MATCH (a:Article {id: $article_id})
MERGE (a)-[:MENTIONS]->(e)
`

// relationships are CREATEd: the same fact may be reported by several articles
const relationshipCypherTemplate = `
MATCH (source:Entity {name: $source_name})
MATCH (target:Entity {name: $target_name})
MATCH (a:Article {id: $article_id})
MATCH (t:Topic {name: $topic_name})

CREATE (source)-[r:%s]->(target)

SET r.context = $context,
    r.date = $date,
    r.article_id = a.id,
    r.topic_name = t.name,
    r.created_at = datetime()
`

// GenerateCypherQueries returns the statements that persist kg for article:
// the topic and article first, then one per entity, then one per relationship.
func GenerateCypherQueries(article Article, kg KnowledgeGraph) []Query {
	articleID := article.ID()
	queries := make([]Query, 0, 1+len(kg.Entities)+len(kg.Relationships))

	queries = append(queries, Query{
		Cypher: topicArticleCypher,
		Params: map[string]any{
			"topic_name":           kg.Topic,
			"category":             string(kg.Category),
			"article_id":           articleID,
			"article_title":        article.Name,
			"article_date":         optional(article.Date),
			"article_text_preview": article.Text,
		},
	})

	for _, e := range kg.Entities {
		queries = append(queries, Query{
			Cypher: fmt.Sprintf(entityCypherTemplate, SanitizeIdentifier(e.Label)),
			Params: map[string]any{
				"name":        e.Name,
				"description": optional(e.Description),
				"label_raw":   e.Label,
				"article_id":  articleID,
			},
		})
	}

	for _, r := range kg.Relationships {
		queries = append(queries, Query{
			Cypher: fmt.Sprintf(relationshipCypherTemplate, SanitizeIdentifier(r.Type)),
			Params: map[string]any{
				"source_name": r.Source,
				"target_name": r.Target,
				"article_id":  articleID,
				"topic_name":  kg.Topic,
				"context":     r.Context,
				"date":        optional(r.Date),
			},
		})
	}

	return queries
}

// optional maps a nil pointer to a Cypher null.
func optional(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
