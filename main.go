package main

import "github.com/estagio-app/ms-go-auth/cmd"

func main() {
	cmd.Execute()
}
