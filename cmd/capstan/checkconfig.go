// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/capstan-release/capstan/lib/config"
	"github.com/capstan-release/capstan/lib/forge"
	"github.com/capstan-release/capstan/lib/version"
)

func runCheckConfig(args []string) error {
	flags := pflag.NewFlagSet("capstan check-config", pflag.ContinueOnError)
	file := flags.String("file", "", "configuration file (defaults to CAPSTAN_CONFIG)")
	repo := flags.String("repo", "", "show the effective configuration for owner/name after overrides")
	if err := flags.Parse(args); err != nil {
		return err
	}

	var configuration *config.Config
	var err error
	if *file != "" {
		configuration, err = config.LoadFile(*file)
	} else {
		configuration, err = config.Load()
	}
	if err != nil {
		return err
	}

	if *repo != "" {
		name, err := parseRepoName(*repo)
		if err != nil {
			return err
		}
		configuration, err = configuration.ForRepo(name)
		if err != nil {
			return err
		}
	}

	fmt.Println("configuration ok")
	fmt.Printf("  main branch:    %s\n", configuration.MainBranch)
	fmt.Printf("  branch prefix:  %s\n", configuration.BranchPrefix)
	fmt.Printf("  version prefix: %s\n", configuration.VersionPrefix)
	fmt.Printf("  pr title:       %s\n", configuration.Templates.Title)
	fmt.Printf("  event deadline: %s\n", configuration.EventDeadline.Std())
	return nil
}

func runVersion(args []string) error {
	fmt.Printf("capstan %s\n", version.Full())
	return nil
}

// parseRepoName splits "owner/name" into a forge.RepoName.
func parseRepoName(s string) (forge.RepoName, error) {
	owner, name, found := strings.Cut(s, "/")
	if !found || owner == "" || name == "" || strings.Contains(name, "/") {
		return forge.RepoName{}, fmt.Errorf("invalid repository %q (want owner/name)", s)
	}
	return forge.RepoName{Owner: owner, Name: name}, nil
}
