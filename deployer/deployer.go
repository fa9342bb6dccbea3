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
	"context"
	"flag"
	"fmt"

	plumbing "github.com/go-git/go-git/v5/plumbing"
	"github.com/octago/sflags/gen/gpflag"
	"github.com/spf13/pflag"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/klog"
)

// Name is the name of the deployer
const Name = "trafficmanager"

var (
	GitTag string

	defaultLocation = "eastus"
	// defaultRegions are the regions that get an app service plan and a web app.
	defaultRegions  = []string{"westus", "eastus2", "eastasia", "japaneast", "northcentralus"}
)

// Deployer provisions the web apps behind a Traffic Manager profile, walks
// the profile through its state changes and tears everything down.
type Deployer struct {
	EnvFile  string   `flag:"env-file" desc:"optional .env file holding CLIENT_ID, CLIENT_SECRET, TENANT_ID and SUBSCRIPTION_ID"`
	Auth     string   `flag:"auth" desc:"authentication mode: browser, client-secret or default"`
	Location string   `flag:"location" desc:"location of the resource group"`
	Regions  []string `flag:"regions" desc:"regions in which an app service plan and a web app are created"`

	CertScript   string `flag:"cert-script" desc:"script creating the self-signed certificate, called with <domain> <pfx-path> <password>; a relative path is looked up in the working directory, then next to the executable"`
	CertPassword string `flag:"cert-password" desc:"password of the generated PFX"`
	OutputDir    string `flag:"output-dir" desc:"directory the certificate is written to"`

	RepoURL         string `flag:"repo-url" desc:"repository the web apps deploy from"`
	Branch          string `flag:"branch" desc:"branch of --repo-url the web apps deploy from"`
	SkipSourceCheck bool   `flag:"skip-source-check" desc:"do not check that --branch exists in --repo-url"`

	cloud Cloud
	names resourceNames

	// resourceGroupCreated is set once the resource group exists and gates cleanup.
	resourceGroupCreated bool

	// swapped in tests
	certificate func(domain string) ([]byte, error)
	listRefs    func(url string) ([]*plumbing.Reference, error)
}

// New creates a deployer with defaults and returns the flags bound to it.
func New() (*Deployer, *pflag.FlagSet) {
	d := newDeployer()
	return d, bindFlags(d)
}

func newDeployer() *Deployer {
	d := &Deployer{
		EnvFile:      ".env",
		Auth:         authBrowser,
		Location:     defaultLocation,
		Regions:      append([]string(nil), defaultRegions...),
		CertScript:   defaultCertScript,
		CertPassword: defaultCertPassword,
		OutputDir:    defaultOutputDir,
		RepoURL:      defaultRepoURL,
		Branch:       defaultBranch,
		names:        newResourceNames(),
		listRefs:     listRemoteRefs,
	}
	d.certificate = d.buildCertificate
	return d
}

// WithCloud makes the deployer use cloud instead of connecting to Azure.
func (d *Deployer) WithCloud(cloud Cloud) *Deployer {
	d.cloud = cloud
	return d
}

func (d *Deployer) verifyFlags() error {
	// the endpoint script disables endpoint-1 and deletes endpoint-2
	if len(d.Regions) < 2 {
		return fmt.Errorf("at least two regions are required, got %v", d.Regions)
	}
	for _, r := range d.Regions {
		if r == "" {
			return fmt.Errorf("empty region in %v", d.Regions)
		}
	}
	if sets.NewString(d.Regions...).Len() != len(d.Regions) {
		return fmt.Errorf("duplicate region in %v", d.Regions)
	}
	if d.Location == "" {
		return fmt.Errorf("location must be set")
	}
	return nil
}

// connect authenticates and creates the Azure clients unless a Cloud was
// injected with WithCloud.
func (d *Deployer) connect(ctx context.Context) error {
	if d.cloud != nil {
		return nil
	}
	creds, err := loadCredentials(d.EnvFile)
	if err != nil {
		return err
	}
	cred, err := newCredential(d.Auth, creds)
	if err != nil {
		return fmt.Errorf("failed to authenticate: %v", err)
	}
	subscriptionID, err := resolveSubscription(ctx, creds.subscriptionID, cred)
	if err != nil {
		return err
	}
	d.cloud, err = NewAzureCloud(subscriptionID, cred)
	return err
}

// Run provisions and exercises the resources, then deletes the resource
// group whatever the outcome. A cleanup failure is logged and not returned.
func (d *Deployer) Run(ctx context.Context) error {
	if err := d.verifyFlags(); err != nil {
		return fmt.Errorf("failed to verify flags: %v", err)
	}
	script, err := resolveCertScript(d.CertScript)
	if err != nil {
		return err
	}
	d.CertScript = script
	if err := d.verifySourceBranch(); err != nil {
		return fmt.Errorf("failed to verify source repository: %v", err)
	}
	if err := d.connect(ctx); err != nil {
		return err
	}

	defer func() {
		if !d.resourceGroupCreated {
			return
		}
		// cleanup must outlive an interrupted run
		if err := d.Down(context.WithoutCancel(ctx)); err != nil {
			klog.Errorf("failed to clean up: %v", err)
		}
	}()
	return d.Up(ctx)
}

func (d *Deployer) Version() string {
	return GitTag
}

// bindFlags is a helper used to create & bind a flagset to the deployer
func bindFlags(d *Deployer) *pflag.FlagSet {
	flags, err := gpflag.Parse(d)
	if err != nil {
		klog.Fatalf("unable to generate flags from deployer")
		return nil
	}

	klog.InitFlags(nil)
	flags.AddGoFlagSet(flag.CommandLine)

	return flags
}
