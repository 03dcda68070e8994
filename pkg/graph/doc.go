// Package graph persists article knowledge graphs in Neo4j.
//
// The schemas in this package double as generation targets: a
// KnowledgeGraph is produced by the generator from an Article's text and
// then written as Topic, Article and Entity nodes joined by COVERS, MENTIONS
// and extracted relationship edges.
package graph
