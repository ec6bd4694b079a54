// Package s3 stores entity store generations in Amazon S3.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("entities/"),
//	    s3.WithRegion("eu-central-1"),
//	)
//
//	svc, err := nerdgo.Init(ctx, cfg, nerdgo.WithBlobStore(store))
//
// Embedding matrices are uploaded with the multipart uploader; reads use
// ranged GETs so row lookups do not download whole generations.
//
// S3 has no compare-and-swap on object overwrite. Wrap the Store in a
// DDBCommitStore when more than one writer may publish generations to the
// same prefix; it moves the CURRENT pointer into a DynamoDB table with a
// conditional write.
package s3
