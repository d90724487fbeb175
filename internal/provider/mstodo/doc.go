// Package mstodo implements the provider adapter for the Microsoft To Do
// surface of the Microsoft Graph API.
//
// All operations run against the user's default task list, resolved from
// the wellknownListName marker on each call. Listing follows @odata.nextLink
// continuations until the collection is exhausted. Graph serves task bodies
// as HTML for most accounts; bodies are kept raw in the remote envelope and
// flattened to plain text during canonical conversion.
//
// The adapter authenticates each call with the access token it is handed;
// token lifecycle is the token manager's concern, not this package's.
package mstodo
