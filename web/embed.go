package web

import "embed"

// StaticFiles holds the stylesheet and any other assets served under
// /static/.
//
//go:embed static/*
var StaticFiles embed.FS
