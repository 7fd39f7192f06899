// Package styletelling is a Go client for the styletelling recommendation API.
//
// A query in Portuguese goes in, a ranked list of catalog products comes out:
//
//	client, _ := styletelling.New("http://localhost:8080",
//	    styletelling.WithAPIKey(os.Getenv("STYLETELLING_API_KEY")),
//	)
//	rec, err := client.Recommend(ctx, "casamento na praia à tarde")
//	for _, p := range rec.Products {
//	    fmt.Println(p.Category, p.UID, p.Composite)
//	}
//
// # Streaming
//
// Stream yields every stage event as it arrives. The last event is either
// a result carrying the Recommendation or an error:
//
//	for ev, err := range client.Stream(ctx, query) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Printf("%s %.0f%%\n", ev.Stage, ev.Progress*100)
//	}
//
// API failures are returned as *APIError and match the package sentinels
// with errors.Is.
package styletelling
