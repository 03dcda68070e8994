package graph

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	ran          []Query
	transactions [][]Query
	failOn       string
	closed       bool
}

func (f *fakeRunner) Run(_ context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	if f.failOn != "" && cypher == f.failOn {
		return nil, errors.New("boom")
	}
	f.ran = append(f.ran, Query{Cypher: cypher, Params: params})
	return []map[string]any{{"ok": true}}, nil
}

func (f *fakeRunner) RunInTransaction(_ context.Context, queries []Query) error {
	for _, q := range queries {
		if f.failOn != "" && q.Cypher == f.failOn {
			return errors.New("boom")
		}
	}
	f.transactions = append(f.transactions, queries)
	return nil
}

func (f *fakeRunner) Close(context.Context) error {
	f.closed = true
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(t *testing.T, r *fakeRunner) *Manager {
	t.Helper()
	m, err := newManager(context.Background(), r, quietLogger())
	require.NoError(t, err)
	return m
}

func sampleGraph() (Article, KnowledgeGraph) {
	article := Article{Name: "Summit", Text: "Leaders met in Geneva.", Date: StringPtr("2024-05-01")}
	kg := KnowledgeGraph{
		Category: CategoryPolitics,
		Topic:    "Geneva summit",
		Entities: []Entity{
			{Name: "иван", Label: "Person", Description: StringPtr("delegate")},
			{Name: "geneva", Label: "Geo-Political Entity"},
		},
		Relationships: []Relationship{
			{Source: "иван", Target: "geneva", Type: "visited city", Context: "summit trip"},
		},
	}
	return article, kg
}

func TestNewManagerCreatesConstraint(t *testing.T) {
	r := &fakeRunner{}
	newTestManager(t, r)

	require.Len(t, r.ran, 1)
	assert.Equal(t, entityConstraintCypher, r.ran[0].Cypher)
}

func TestNewManagerConstraintFailure(t *testing.T) {
	_, err := newManager(context.Background(), &fakeRunner{failOn: entityConstraintCypher}, quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "constraint")
}

func TestSanitizeIdentifier(t *testing.T) {
	cases := map[string]string{
		"CEO of Company":       "CEO_OF_COMPANY",
		"held-position":        "HELD_POSITION",
		"  __a  b__ ":          "A_B",
		"":                     DefaultRelationshipType,
		"!!!":                  DefaultRelationshipType,
		"Geo-Political Entity": "GEO_POLITICAL_ENTITY",
		"работал в":            DefaultRelationshipType,
	}
	for in, want := range cases {
		assert.Equal(t, want, SanitizeIdentifier(in), in)
	}
}

func TestGenerateCypherQueries(t *testing.T) {
	article, kg := sampleGraph()
	queries := GenerateCypherQueries(article, kg)
	require.Len(t, queries, 4)

	head := queries[0]
	assert.Contains(t, head.Cypher, "MERGE (t:Topic {name: $topic_name})")
	assert.Equal(t, "Geneva summit", head.Params["topic_name"])
	assert.Equal(t, "Политика", head.Params["category"])
	assert.Equal(t, article.ID(), head.Params["article_id"])
	assert.Equal(t, "Summit", head.Params["article_title"])
	assert.Equal(t, "2024-05-01", head.Params["article_date"])
	assert.Equal(t, "Leaders met in Geneva.", head.Params["article_text_preview"])

	assert.Contains(t, queries[1].Cypher, "MERGE (e:Entity:PERSON {name: $name})")
	assert.Equal(t, "delegate", queries[1].Params["description"])
	assert.Equal(t, "Person", queries[1].Params["label_raw"])

	assert.Contains(t, queries[2].Cypher, "MERGE (e:Entity:GEO_POLITICAL_ENTITY {name: $name})")
	assert.Nil(t, queries[2].Params["description"])

	rel := queries[3]
	assert.Contains(t, rel.Cypher, "CREATE (source)-[r:VISITED_CITY]->(target)")
	assert.Equal(t, "иван", rel.Params["source_name"])
	assert.Equal(t, "geneva", rel.Params["target_name"])
	assert.Equal(t, "Geneva summit", rel.Params["topic_name"])
	assert.Equal(t, "summit trip", rel.Params["context"])
	assert.Nil(t, rel.Params["date"])
}

func TestGenerateCypherQueriesEmptyGraph(t *testing.T) {
	article := Article{Name: "Empty"}
	queries := GenerateCypherQueries(article, KnowledgeGraph{Category: CategoryWorld, Topic: "nothing"})
	require.Len(t, queries, 1)
	assert.Nil(t, queries[0].Params["article_date"])
}

func TestExecuteQueries(t *testing.T) {
	r := &fakeRunner{}
	m := newTestManager(t, r)

	results, err := m.ExecuteQueries(context.Background(), []Query{
		{Cypher: "RETURN 1"},
		{Cypher: "RETURN 2", Params: map[string]any{"x": 1}},
	})
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Len(t, r.ran, 3)
	assert.NotNil(t, r.ran[1].Params)
}

func TestExecuteQueriesStopsOnFailure(t *testing.T) {
	r := &fakeRunner{}
	m := newTestManager(t, r)
	r.failOn = "BAD"

	results, err := m.ExecuteQueries(context.Background(), []Query{
		{Cypher: "RETURN 1"},
		{Cypher: "BAD"},
		{Cypher: "RETURN 3"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query 2/3 failed")
	assert.Len(t, results, 1)
	assert.Len(t, r.ran, 2)
}

func TestWriteKnowledgeGraph(t *testing.T) {
	r := &fakeRunner{}
	m := newTestManager(t, r)
	article, kg := sampleGraph()

	require.NoError(t, m.WriteKnowledgeGraph(context.Background(), article, kg))
	require.Len(t, r.transactions, 1)
	assert.Len(t, r.transactions[0], 4)

	require.NoError(t, m.Close(context.Background()))
	assert.True(t, r.closed)
}

func TestWriteKnowledgeGraphFailure(t *testing.T) {
	article, kg := sampleGraph()
	r := &fakeRunner{failOn: topicArticleCypher}
	m := newTestManager(t, r)

	err := m.WriteKnowledgeGraph(context.Background(), article, kg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Summit")
	assert.Empty(t, r.transactions)
}
