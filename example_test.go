package convcache_test

import (
	"context"
	"fmt"
	"time"

	convcache "github.com/svoer/FhirConverter-sub001"
)

// The conversion pipeline consults the cache before running a conversion
// and memoizes the result afterward.
func Example() {
	cache, err := convcache.New(
		convcache.WithMaxMemoryEntries(100),
		convcache.WithTTL(time.Hour),
		convcache.WithMinInputSize(0),
	)
	if err != nil {
		panic(err)
	}
	defer cache.Close()

	ctx := context.Background()
	message := []byte("MSH|^~\\&|SENDER|FAC|REC|FAC|20250601||ADT^A01|MSG1|P|2.5")

	if _, ok := cache.Lookup(ctx, message); !ok {
		// Cache miss: run the expensive conversion and memoize it.
		bundle := []byte(`{"resourceType":"Bundle"}`)
		cache.Store(ctx, message, bundle)
	}

	fhir, ok := cache.Lookup(ctx, message)
	fmt.Println(ok, string(fhir))
	// Output: true {"resourceType":"Bundle"}
}
