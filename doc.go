// Package skls ingests news articles into a retrieval stack: article text is
// split into chunks that are embedded and stored in Chroma, and a knowledge
// graph extracted by an LLM is written to Neo4j.
//
// # Basic Usage
//
// Build a client from configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//	client, err := skls.NewClientFromConfig(ctx, cfg, alert.NoOpAlerter{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close(ctx)
//
// # Ingesting Articles
//
//	res, err := client.IngestArticle(ctx, graph.Article{
//		Name: "Саммит в Женеве",
//		Text: text,
//		Date: graph.StringPtr("2024-05-01"),
//	}, nil)
//
// Chunks already present in the store (similarity above the threshold) are
// skipped, so re-ingesting the same article only refreshes its graph.
//
// # Searching
//
//	results, err := client.Search(ctx, "переговоры", 5)
//	for _, r := range results {
//		fmt.Printf("%.3f %s\n", r.Similarity(), r.Text)
//	}
//
// The lower level pieces live in pkg/: embedder, vectorstore, nlp, generator,
// graph. Each can be used on its own.
package skls
