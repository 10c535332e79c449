// Package file loads pipeline configuration from a TOML file, layering
// user settings over compiled-in defaults. Credentials are resolved
// separately from the environment so the file stays secret-free.
package file
