package main

import "github.com/ValentinKolb/rDict/cmd"

func main() {
	cmd.Execute()
}
