// Package services implements the core retrieval logic: vector search,
// lexical search, reciprocal rank fusion, and grounded answer assembly.
package services
