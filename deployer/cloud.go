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
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/appservice/armappservice/v4"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/trafficmanager/armtrafficmanager"
)

// Cloud is the part of the Azure management API the deployer drives.
// Every call blocks until the remote operation has completed.
type Cloud interface {
	CreateResourceGroup(ctx context.Context, name string, group armresources.ResourceGroup) (armresources.ResourceGroup, error)
	DeleteResourceGroup(ctx context.Context, name string) error

	CreateDomain(ctx context.Context, resourceGroup, name string, domain armappservice.Domain) (armappservice.Domain, error)
	CreatePlan(ctx context.Context, resourceGroup, name string, plan armappservice.Plan) (armappservice.Plan, error)
	CreateWebApp(ctx context.Context, resourceGroup, name string, site armappservice.Site) (armappservice.Site, error)
	CreateHostNameBinding(ctx context.Context, resourceGroup, site, hostName string, binding armappservice.HostNameBinding) (armappservice.HostNameBinding, error)
	CreateCertificate(ctx context.Context, resourceGroup, name string, cert armappservice.AppCertificate) (armappservice.AppCertificate, error)
	CreateSourceControl(ctx context.Context, resourceGroup, site string, sourceControl armappservice.SiteSourceControl) (armappservice.SiteSourceControl, error)

	CreateProfile(ctx context.Context, resourceGroup, name string, profile armtrafficmanager.Profile) (armtrafficmanager.Profile, error)
	UpdateProfile(ctx context.Context, resourceGroup, name string, profile armtrafficmanager.Profile) (armtrafficmanager.Profile, error)
	DeleteProfile(ctx context.Context, resourceGroup, name string) error

	CreateEndpoint(ctx context.Context, resourceGroup, profile string, endpointType armtrafficmanager.EndpointType, name string, endpoint armtrafficmanager.Endpoint) (armtrafficmanager.Endpoint, error)
	GetEndpoint(ctx context.Context, resourceGroup, profile string, endpointType armtrafficmanager.EndpointType, name string) (armtrafficmanager.Endpoint, error)
	UpdateEndpoint(ctx context.Context, resourceGroup, profile string, endpointType armtrafficmanager.EndpointType, name string, endpoint armtrafficmanager.Endpoint) (armtrafficmanager.Endpoint, error)
	DeleteEndpoint(ctx context.Context, resourceGroup, profile string, endpointType armtrafficmanager.EndpointType, name string) error
}

// azureCloud implements Cloud with the ARM clients of one subscription.
type azureCloud struct {
	groups       *armresources.ResourceGroupsClient
	domains      *armappservice.DomainsClient
	plans        *armappservice.PlansClient
	webApps      *armappservice.WebAppsClient
	certificates *armappservice.CertificatesClient
	profiles     *armtrafficmanager.ProfilesClient
	endpoints    *armtrafficmanager.EndpointsClient
}

// NewAzureCloud creates the ARM clients for the given subscription.
func NewAzureCloud(subscriptionID string, credential azcore.TokenCredential) (Cloud, error) {
	c := &azureCloud{}
	var err error
	if c.groups, err = armresources.NewResourceGroupsClient(subscriptionID, credential, nil); err != nil {
		return nil, fmt.Errorf("failed to new resource groups client with sub ID %q: %v", subscriptionID, err)
	}
	if c.domains, err = armappservice.NewDomainsClient(subscriptionID, credential, nil); err != nil {
		return nil, fmt.Errorf("failed to new domains client with sub ID %q: %v", subscriptionID, err)
	}
	if c.plans, err = armappservice.NewPlansClient(subscriptionID, credential, nil); err != nil {
		return nil, fmt.Errorf("failed to new app service plans client with sub ID %q: %v", subscriptionID, err)
	}
	if c.webApps, err = armappservice.NewWebAppsClient(subscriptionID, credential, nil); err != nil {
		return nil, fmt.Errorf("failed to new web apps client with sub ID %q: %v", subscriptionID, err)
	}
	if c.certificates, err = armappservice.NewCertificatesClient(subscriptionID, credential, nil); err != nil {
		return nil, fmt.Errorf("failed to new certificates client with sub ID %q: %v", subscriptionID, err)
	}
	if c.profiles, err = armtrafficmanager.NewProfilesClient(subscriptionID, credential, nil); err != nil {
		return nil, fmt.Errorf("failed to new traffic manager profiles client with sub ID %q: %v", subscriptionID, err)
	}
	if c.endpoints, err = armtrafficmanager.NewEndpointsClient(subscriptionID, credential, nil); err != nil {
		return nil, fmt.Errorf("failed to new traffic manager endpoints client with sub ID %q: %v", subscriptionID, err)
	}
	return c, nil
}

func (c *azureCloud) CreateResourceGroup(ctx context.Context, name string, group armresources.ResourceGroup) (armresources.ResourceGroup, error) {
	resp, err := c.groups.CreateOrUpdate(ctx, name, group, nil)
	if err != nil {
		return armresources.ResourceGroup{}, err
	}
	return resp.ResourceGroup, nil
}

func (c *azureCloud) DeleteResourceGroup(ctx context.Context, name string) error {
	poller, err := c.groups.BeginDelete(ctx, name, nil)
	if err != nil {
		return fmt.Errorf("failed to begin deleting resource group %q: %v", name, err)
	}
	if _, err := poller.PollUntilDone(ctx, nil); err != nil {
		return fmt.Errorf("failed to poll until deletion of resource group %q is done: %v", name, err)
	}
	return nil
}

func (c *azureCloud) CreateDomain(ctx context.Context, resourceGroup, name string, domain armappservice.Domain) (armappservice.Domain, error) {
	poller, err := c.domains.BeginCreateOrUpdate(ctx, resourceGroup, name, domain, nil)
	if err != nil {
		return armappservice.Domain{}, err
	}
	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return armappservice.Domain{}, err
	}
	return resp.Domain, nil
}

func (c *azureCloud) CreatePlan(ctx context.Context, resourceGroup, name string, plan armappservice.Plan) (armappservice.Plan, error) {
	poller, err := c.plans.BeginCreateOrUpdate(ctx, resourceGroup, name, plan, nil)
	if err != nil {
		return armappservice.Plan{}, err
	}
	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return armappservice.Plan{}, err
	}
	return resp.Plan, nil
}

func (c *azureCloud) CreateWebApp(ctx context.Context, resourceGroup, name string, site armappservice.Site) (armappservice.Site, error) {
	poller, err := c.webApps.BeginCreateOrUpdate(ctx, resourceGroup, name, site, nil)
	if err != nil {
		return armappservice.Site{}, err
	}
	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return armappservice.Site{}, err
	}
	return resp.Site, nil
}

func (c *azureCloud) CreateHostNameBinding(ctx context.Context, resourceGroup, site, hostName string, binding armappservice.HostNameBinding) (armappservice.HostNameBinding, error) {
	resp, err := c.webApps.CreateOrUpdateHostNameBinding(ctx, resourceGroup, site, hostName, binding, nil)
	if err != nil {
		return armappservice.HostNameBinding{}, err
	}
	return resp.HostNameBinding, nil
}

func (c *azureCloud) CreateCertificate(ctx context.Context, resourceGroup, name string, cert armappservice.AppCertificate) (armappservice.AppCertificate, error) {
	resp, err := c.certificates.CreateOrUpdate(ctx, resourceGroup, name, cert, nil)
	if err != nil {
		return armappservice.AppCertificate{}, err
	}
	return resp.AppCertificate, nil
}

func (c *azureCloud) CreateSourceControl(ctx context.Context, resourceGroup, site string, sourceControl armappservice.SiteSourceControl) (armappservice.SiteSourceControl, error) {
	poller, err := c.webApps.BeginCreateOrUpdateSourceControl(ctx, resourceGroup, site, sourceControl, nil)
	if err != nil {
		return armappservice.SiteSourceControl{}, err
	}
	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return armappservice.SiteSourceControl{}, err
	}
	return resp.SiteSourceControl, nil
}

func (c *azureCloud) CreateProfile(ctx context.Context, resourceGroup, name string, profile armtrafficmanager.Profile) (armtrafficmanager.Profile, error) {
	resp, err := c.profiles.CreateOrUpdate(ctx, resourceGroup, name, profile, nil)
	if err != nil {
		return armtrafficmanager.Profile{}, err
	}
	return resp.Profile, nil
}

func (c *azureCloud) UpdateProfile(ctx context.Context, resourceGroup, name string, profile armtrafficmanager.Profile) (armtrafficmanager.Profile, error) {
	resp, err := c.profiles.Update(ctx, resourceGroup, name, profile, nil)
	if err != nil {
		return armtrafficmanager.Profile{}, err
	}
	return resp.Profile, nil
}

func (c *azureCloud) DeleteProfile(ctx context.Context, resourceGroup, name string) error {
	_, err := c.profiles.Delete(ctx, resourceGroup, name, nil)
	return err
}

func (c *azureCloud) CreateEndpoint(ctx context.Context, resourceGroup, profile string, endpointType armtrafficmanager.EndpointType, name string, endpoint armtrafficmanager.Endpoint) (armtrafficmanager.Endpoint, error) {
	resp, err := c.endpoints.CreateOrUpdate(ctx, resourceGroup, profile, endpointType, name, endpoint, nil)
	if err != nil {
		return armtrafficmanager.Endpoint{}, err
	}
	return resp.Endpoint, nil
}

func (c *azureCloud) GetEndpoint(ctx context.Context, resourceGroup, profile string, endpointType armtrafficmanager.EndpointType, name string) (armtrafficmanager.Endpoint, error) {
	resp, err := c.endpoints.Get(ctx, resourceGroup, profile, endpointType, name, nil)
	if err != nil {
		return armtrafficmanager.Endpoint{}, err
	}
	return resp.Endpoint, nil
}

func (c *azureCloud) UpdateEndpoint(ctx context.Context, resourceGroup, profile string, endpointType armtrafficmanager.EndpointType, name string, endpoint armtrafficmanager.Endpoint) (armtrafficmanager.Endpoint, error) {
	resp, err := c.endpoints.Update(ctx, resourceGroup, profile, endpointType, name, endpoint, nil)
	if err != nil {
		return armtrafficmanager.Endpoint{}, err
	}
	return resp.Endpoint, nil
}

func (c *azureCloud) DeleteEndpoint(ctx context.Context, resourceGroup, profile string, endpointType armtrafficmanager.EndpointType, name string) error {
	_, err := c.endpoints.Delete(ctx, resourceGroup, profile, endpointType, name, nil)
	return err
}

// isNotFound reports whether err is an ARM 404 response.
func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}
