package main

import "github.com/edgeflare/fluentrest/cmd/fluentrest"

func main() {
	fluentrest.Main()
}
