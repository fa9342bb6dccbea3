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
	"fmt"
	"net/http"
	"sort"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	azto "github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/appservice/armappservice/v4"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/trafficmanager/armtrafficmanager"
	"github.com/Azure/go-autorest/autorest/to"
)

const fakeSubscription = "00000000-0000-0000-0000-000000000000"

// fakeCloud is an in-memory Cloud. It records every call and fails the
// operations named in failOn.
type fakeCloud struct {
	calls  []string
	failOn map[string]error

	// transientNotFound makes GetEndpoint answer 404 that many times per endpoint.
	transientNotFound map[string]int

	groups           map[string]armresources.ResourceGroup
	plans            []armappservice.Plan
	sites            []armappservice.Site
	certificates     []armappservice.AppCertificate
	createdEndpoints []armtrafficmanager.Endpoint
	profiles         map[string]*armtrafficmanager.Profile
	endpoints        map[string]map[string]*armtrafficmanager.Endpoint
	// deletedProfiles keeps the last state of deleted profiles, endpoints included.
	deletedProfiles  map[string]armtrafficmanager.Profile
}

func newFakeCloud() *fakeCloud {
	return &fakeCloud{
		failOn:            map[string]error{},
		transientNotFound: map[string]int{},
		groups:            map[string]armresources.ResourceGroup{},
		profiles:          map[string]*armtrafficmanager.Profile{},
		endpoints:         map[string]map[string]*armtrafficmanager.Endpoint{},
		deletedProfiles:   map[string]armtrafficmanager.Profile{},
	}
}

var _ Cloud = &fakeCloud{}

func (f *fakeCloud) record(op string) error {
	f.calls = append(f.calls, op)
	return f.failOn[op]
}

func (f *fakeCloud) count(op string) int {
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

func resourceID(resourceGroup, provider, name string) *string {
	return to.StringPtr(fmt.Sprintf("/subscriptions/%s/resourceGroups/%s/providers/%s/%s", fakeSubscription, resourceGroup, provider, name))
}

func notFoundError(id string) error {
	req, _ := http.NewRequest(http.MethodGet, "https://management.azure.com"+id, nil)
	return &azcore.ResponseError{
		ErrorCode:  "NotFound",
		StatusCode: http.StatusNotFound,
		RawResponse: &http.Response{
			Status:     "404 Not Found",
			StatusCode: http.StatusNotFound,
			Header:     http.Header{},
			Body:       http.NoBody,
			Request:    req,
		},
	}
}

func (f *fakeCloud) CreateResourceGroup(_ context.Context, name string, group armresources.ResourceGroup) (armresources.ResourceGroup, error) {
	if err := f.record("CreateResourceGroup"); err != nil {
		return armresources.ResourceGroup{}, err
	}
	group.ID = to.StringPtr(fmt.Sprintf("/subscriptions/%s/resourceGroups/%s", fakeSubscription, name))
	group.Name = to.StringPtr(name)
	f.groups[name] = group
	return group, nil
}

func (f *fakeCloud) DeleteResourceGroup(_ context.Context, name string) error {
	if err := f.record("DeleteResourceGroup"); err != nil {
		return err
	}
	if _, ok := f.groups[name]; !ok {
		return notFoundError("/resourceGroups/" + name)
	}
	delete(f.groups, name)
	return nil
}

func (f *fakeCloud) CreateDomain(_ context.Context, resourceGroup, name string, domain armappservice.Domain) (armappservice.Domain, error) {
	if err := f.record("CreateDomain"); err != nil {
		return armappservice.Domain{}, err
	}
	domain.ID = resourceID(resourceGroup, "Microsoft.DomainRegistration/domains", name)
	domain.Name = to.StringPtr(name)
	return domain, nil
}

func (f *fakeCloud) CreatePlan(_ context.Context, resourceGroup, name string, plan armappservice.Plan) (armappservice.Plan, error) {
	if err := f.record("CreatePlan"); err != nil {
		return armappservice.Plan{}, err
	}
	plan.ID = resourceID(resourceGroup, "Microsoft.Web/serverfarms", name)
	plan.Name = to.StringPtr(name)
	f.plans = append(f.plans, plan)
	return plan, nil
}

func (f *fakeCloud) CreateWebApp(_ context.Context, resourceGroup, name string, site armappservice.Site) (armappservice.Site, error) {
	if err := f.record("CreateWebApp"); err != nil {
		return armappservice.Site{}, err
	}
	site.ID = resourceID(resourceGroup, "Microsoft.Web/sites", name)
	site.Name = to.StringPtr(name)
	f.sites = append(f.sites, site)
	return site, nil
}

func (f *fakeCloud) CreateHostNameBinding(_ context.Context, resourceGroup, site, hostName string, binding armappservice.HostNameBinding) (armappservice.HostNameBinding, error) {
	if err := f.record("CreateHostNameBinding"); err != nil {
		return armappservice.HostNameBinding{}, err
	}
	binding.ID = resourceID(resourceGroup, "Microsoft.Web/sites", site+"/hostNameBindings/"+hostName)
	binding.Name = to.StringPtr(hostName)
	return binding, nil
}

func (f *fakeCloud) CreateCertificate(_ context.Context, resourceGroup, name string, cert armappservice.AppCertificate) (armappservice.AppCertificate, error) {
	if err := f.record("CreateCertificate"); err != nil {
		return armappservice.AppCertificate{}, err
	}
	cert.ID = resourceID(resourceGroup, "Microsoft.Web/certificates", name)
	cert.Name = to.StringPtr(name)
	f.certificates = append(f.certificates, cert)
	return cert, nil
}

func (f *fakeCloud) CreateSourceControl(_ context.Context, resourceGroup, site string, sourceControl armappservice.SiteSourceControl) (armappservice.SiteSourceControl, error) {
	if err := f.record("CreateSourceControl"); err != nil {
		return armappservice.SiteSourceControl{}, err
	}
	sourceControl.ID = resourceID(resourceGroup, "Microsoft.Web/sites", site+"/sourcecontrols/web")
	return sourceControl, nil
}

func copyProfile(p *armtrafficmanager.Profile) armtrafficmanager.Profile {
	out := *p
	if p.Properties != nil {
		props := *p.Properties
		props.Endpoints = append([]*armtrafficmanager.Endpoint(nil), p.Properties.Endpoints...)
		out.Properties = &props
	}
	return out
}

func copyEndpoint(ep *armtrafficmanager.Endpoint) armtrafficmanager.Endpoint {
	out := *ep
	if ep.Properties != nil {
		props := *ep.Properties
		out.Properties = &props
	}
	return out
}

func (f *fakeCloud) CreateProfile(_ context.Context, resourceGroup, name string, profile armtrafficmanager.Profile) (armtrafficmanager.Profile, error) {
	if err := f.record("CreateProfile"); err != nil {
		return armtrafficmanager.Profile{}, err
	}
	stored := copyProfile(&profile)
	if stored.Properties == nil {
		stored.Properties = &armtrafficmanager.ProfileProperties{}
	}
	stored.ID = resourceID(resourceGroup, "Microsoft.Network/trafficManagerProfiles", name)
	stored.Name = to.StringPtr(name)
	f.profiles[name] = &stored
	f.endpoints[name] = map[string]*armtrafficmanager.Endpoint{}
	return copyProfile(&stored), nil
}

func (f *fakeCloud) UpdateProfile(_ context.Context, resourceGroup, name string, profile armtrafficmanager.Profile) (armtrafficmanager.Profile, error) {
	if err := f.record("UpdateProfile"); err != nil {
		return armtrafficmanager.Profile{}, err
	}
	stored, ok := f.profiles[name]
	if !ok {
		return armtrafficmanager.Profile{}, notFoundError(to.String(resourceID(resourceGroup, "Microsoft.Network/trafficManagerProfiles", name)))
	}
	if p := profile.Properties; p != nil {
		if p.TrafficRoutingMethod != nil {
			stored.Properties.TrafficRoutingMethod = p.TrafficRoutingMethod
		}
		if p.ProfileStatus != nil {
			stored.Properties.ProfileStatus = p.ProfileStatus
		}
	}
	return copyProfile(stored), nil
}

func (f *fakeCloud) DeleteProfile(_ context.Context, resourceGroup, name string) error {
	if err := f.record("DeleteProfile"); err != nil {
		return err
	}
	stored, ok := f.profiles[name]
	if !ok {
		return notFoundError(to.String(resourceID(resourceGroup, "Microsoft.Network/trafficManagerProfiles", name)))
	}
	last := copyProfile(stored)
	last.Properties.Endpoints = nil
	names := make([]string, 0, len(f.endpoints[name]))
	for n := range f.endpoints[name] {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		ep := copyEndpoint(f.endpoints[name][n])
		last.Properties.Endpoints = append(last.Properties.Endpoints, &ep)
	}
	f.deletedProfiles[name] = last
	delete(f.profiles, name)
	delete(f.endpoints, name)
	return nil
}

func (f *fakeCloud) CreateEndpoint(_ context.Context, resourceGroup, profile string, endpointType armtrafficmanager.EndpointType, name string, endpoint armtrafficmanager.Endpoint) (armtrafficmanager.Endpoint, error) {
	if err := f.record("CreateEndpoint"); err != nil {
		return armtrafficmanager.Endpoint{}, err
	}
	eps, ok := f.endpoints[profile]
	if !ok {
		return armtrafficmanager.Endpoint{}, notFoundError(to.String(resourceID(resourceGroup, "Microsoft.Network/trafficManagerProfiles", profile)))
	}
	stored := copyEndpoint(&endpoint)
	if stored.Properties == nil {
		stored.Properties = &armtrafficmanager.EndpointProperties{}
	}
	if stored.Properties.EndpointStatus == nil {
		stored.Properties.EndpointStatus = azto.Ptr(armtrafficmanager.EndpointStatusEnabled)
	}
	stored.ID = resourceID(resourceGroup, "Microsoft.Network/trafficManagerProfiles", profile+"/"+string(endpointType)+"/"+name)
	stored.Name = to.StringPtr(name)
	stored.Type = to.StringPtr("Microsoft.Network/trafficManagerProfiles/" + string(endpointType))
	eps[name] = &stored
	f.createdEndpoints = append(f.createdEndpoints, copyEndpoint(&stored))
	return copyEndpoint(&stored), nil
}

func (f *fakeCloud) lookupEndpoint(resourceGroup, profile string, endpointType armtrafficmanager.EndpointType, name string) (*armtrafficmanager.Endpoint, error) {
	ep, ok := f.endpoints[profile][name]
	if !ok {
		return nil, notFoundError(to.String(resourceID(resourceGroup, "Microsoft.Network/trafficManagerProfiles", profile+"/"+string(endpointType)+"/"+name)))
	}
	return ep, nil
}

func (f *fakeCloud) GetEndpoint(_ context.Context, resourceGroup, profile string, endpointType armtrafficmanager.EndpointType, name string) (armtrafficmanager.Endpoint, error) {
	if err := f.record("GetEndpoint"); err != nil {
		return armtrafficmanager.Endpoint{}, err
	}
	if f.transientNotFound[name] > 0 {
		f.transientNotFound[name]--
		return armtrafficmanager.Endpoint{}, notFoundError("/" + name)
	}
	ep, err := f.lookupEndpoint(resourceGroup, profile, endpointType, name)
	if err != nil {
		return armtrafficmanager.Endpoint{}, err
	}
	return copyEndpoint(ep), nil
}

func (f *fakeCloud) UpdateEndpoint(_ context.Context, resourceGroup, profile string, endpointType armtrafficmanager.EndpointType, name string, endpoint armtrafficmanager.Endpoint) (armtrafficmanager.Endpoint, error) {
	if err := f.record("UpdateEndpoint"); err != nil {
		return armtrafficmanager.Endpoint{}, err
	}
	ep, err := f.lookupEndpoint(resourceGroup, profile, endpointType, name)
	if err != nil {
		return armtrafficmanager.Endpoint{}, err
	}
	if p := endpoint.Properties; p != nil {
		if p.EndpointStatus != nil {
			ep.Properties.EndpointStatus = p.EndpointStatus
		}
		if p.Priority != nil {
			ep.Properties.Priority = p.Priority
		}
	}
	return copyEndpoint(ep), nil
}

func (f *fakeCloud) DeleteEndpoint(_ context.Context, resourceGroup, profile string, endpointType armtrafficmanager.EndpointType, name string) error {
	if err := f.record("DeleteEndpoint"); err != nil {
		return err
	}
	if _, err := f.lookupEndpoint(resourceGroup, profile, endpointType, name); err != nil {
		return err
	}
	delete(f.endpoints[profile], name)
	return nil
}
