// Package moviebox provides a session-based client for the MovieBox content catalog.
//
// MovieBox exposes its catalog through an undocumented JSON API used by its web
// frontend, plus server-rendered detail pages that embed their state as JSON.
// This package wraps both behind a single dispatch point.
//
// # Architecture
//
//   - Factory: holds connection settings and builds a fresh Session per call
//   - Session: one cookie jar and http.Client, never shared between requests
//   - Query: a closed set of provider configurations (search, trending,
//     homepage, popular searches, movie and TV series details)
//   - Content: the result of one fetch; items stay opaque JSON
//
// # Usage
//
//	factory, err := moviebox.NewFactory(
//		"https://h5.aoneroom.com",
//		"https://moviebox.ph",
//		logger,
//		moviebox.WithTimeout(30*time.Second),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	session, err := factory.NewSession()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	content, err := session.Fetch(ctx, moviebox.SearchQuery{
//		Keyword:     "inception",
//		SubjectType: moviebox.SubjectTypeMovies,
//		Page:        1,
//		PerPage:     24,
//	})
//
// # Error Handling
//
//   - ErrInvalidQuery: query parameters out of range, checked before any I/O
//   - ErrEmptyItem: a details query was built from an item without an address
//   - APIError: non-2xx status or a non-zero upstream result code
//
//	var apiErr *moviebox.APIError
//	if errors.As(err, &apiErr) && apiErr.IsNotFound() {
//		// Handle missing subject
//	}
package moviebox
