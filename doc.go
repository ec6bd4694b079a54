// Package nerdgo is the retrieval core of a named-entity disambiguation
// system.
//
// It keeps one embedding per knowledge-base entity next to a catalog of
// entity records, finds the entities closest to a mention embedding, and
// turns their scores into a probability distribution.
//
// # Quick Start
//
// Serving from local files:
//
//	cfg := config.Default()
//	cfg.EmbeddingsPath = "./data/embeddings.f32"
//	cfg.CatalogPath = "./data/catalog.snap"
//
//	svc, err := nerdgo.Init(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer svc.Close()
//
//	preds, err := svc.Predict(ctx, mentionVector, 5)
//	for _, p := range preds {
//	    fmt.Println(p.EntityID, p.Title, p.Probability)
//	}
//
// Serving the current generation of a blob store:
//
//	bs, _ := blobstore.NewLocalStore("./store")
//	svc, err := nerdgo.Init(ctx, cfg, nerdgo.WithBlobStore(bs))
//
// Generations are produced by merge.Merger; see package merge.
//
// # Probabilities
//
// Predict applies a temperature softmax over the returned top-k scores only.
// Probabilities therefore sum to one across the returned candidates, not
// across the catalog.
//
// # Concurrency
//
// A Service is read-only after Init and safe for concurrent use.
package nerdgo
