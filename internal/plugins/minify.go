package plugins

import "github.com/evanw/esbuild/pkg/api"

const MinifyName = "minify"

// Minify turns on esbuild's minifier and drops legal comments.
func Minify() api.Plugin {
	return api.Plugin{
		Name: MinifyName,
		Setup: func(build api.PluginBuild) {
			build.InitialOptions.MinifyWhitespace = true
			build.InitialOptions.MinifyIdentifiers = true
			build.InitialOptions.MinifySyntax = true
			build.InitialOptions.LegalComments = api.LegalCommentsNone
		},
	}
}
