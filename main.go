/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "carebot/cmd"

func main() {
	cmd.Execute()
}
