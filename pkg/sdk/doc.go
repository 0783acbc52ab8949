// Package mddb is the Go client for the MDDB markdown document server.
//
// A document lives in a collection and is addressed by (collection, key, lang).
// It carries markdown content and multi-valued string metadata usable as
// search filters:
//
//	client, err := mddb.New(ctx, mddb.WithEndpoint("http://localhost:11023"))
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	doc, _ := client.Add(ctx, "blog", "hello", "en",
//	    map[string][]string{"tag": {"go", "db"}}, "# Hello %%name%%")
//	got, _ := client.Get(ctx, "blog", "hello", "en", map[string]string{"name": "world"})
//	page, _ := client.Search(ctx, mddb.SearchRequest{
//	    Collection: "blog",
//	    FilterMeta: map[string][]string{"tag": {"go"}},
//	    Sort:       mddb.SortUpdatedAt,
//	    Limit:      10,
//	})
//
// Every call is a single request/response exchange. Server errors are
// returned as *APIError and match the package sentinels with errors.Is.
package mddb
