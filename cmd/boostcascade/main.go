package main

import "github.com/MeKo-Tech/boostcascade/cmd/boostcascade/cmd"

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.Execute(version, commit, date)
}
