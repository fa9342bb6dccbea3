/*
Copyright 2022 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package deployer

import (
	"fmt"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	plumbing "github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"
	"k8s.io/klog"
)

var (
	defaultRepoURL = "https://github.com/jianghaolu/azure-site-test"
	defaultBranch  = "master"
)

// listRemoteRefs lists the references advertised by the repository at url
// without cloning it.
func listRemoteRefs(url string) ([]*plumbing.Reference, error) {
	remote := git.NewRemote(memory.NewStorage(), &config.RemoteConfig{
		Name: "origin",
		URLs: []string{url},
	})
	return remote.List(&git.ListOptions{})
}

// verifySourceBranch checks that branch exists in the repository the web apps
// deploy from.
func (d *Deployer) verifySourceBranch() error {
	if d.SkipSourceCheck {
		klog.Infof("Skipping the check of %q branch %q", d.RepoURL, d.Branch)
		return nil
	}
	refs, err := d.listRefs(d.RepoURL)
	if err != nil {
		return fmt.Errorf("failed to list references of %q: %v", d.RepoURL, err)
	}
	want := plumbing.NewBranchReferenceName(d.Branch)
	for _, ref := range refs {
		if ref.Name() == want {
			klog.Infof("Source repository %q branch %q is at %s", d.RepoURL, d.Branch, ref.Hash())
			return nil
		}
	}
	return fmt.Errorf("branch %q not found in %q", d.Branch, d.RepoURL)
}
