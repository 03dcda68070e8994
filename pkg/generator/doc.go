// Package generator produces typed values by asking a language model for
// JSON that matches a Go type's JSON Schema.
//
// Each attempt sends the schema and instructions to an nlp.Client, repairs
// the answer into JSON, validates it against the schema and decodes it. When
// the answer is unusable the failure is appended to the conversation so the
// model can correct itself on the next attempt.
//
//	kg, err := generator.GenerateOneShot[graph.KnowledgeGraph](ctx, gen,
//	    generator.WithPrompt("Extract a knowledge graph from: "+text),
//	    generator.WithLanguage("Russian"),
//	)
package generator
