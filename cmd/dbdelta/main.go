package main

import "github.com/cockroachdb/dbdelta/cmd"

func main() {
	cmd.Execute()
}
