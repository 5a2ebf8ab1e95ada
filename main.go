/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/braddmg/genflow/cmd"

func main() {
	cmd.Execute()
}
