// Package web embeds the static front end served next to the API.
package web

import "embed"

// Public holds everything under public/.  Paths inside the FS start with
// "public/".
//
//go:embed public
var Public embed.FS
