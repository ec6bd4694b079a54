// Package minio stores entity store generations in MinIO or any other
// S3-compatible object store (Ceph, Garage, SeaweedFS).
//
//	store, err := minioblob.Connect(ctx, minioblob.Config{
//	    Endpoint:  "localhost:9000",
//	    AccessKey: "minioadmin",
//	    SecretKey: "minioadmin",
//	    Bucket:    "nerd",
//	    Prefix:    "entities/",
//	})
//
//	svc, err := nerdgo.Init(ctx, cfg, nerdgo.WithBlobStore(store))
package minio
