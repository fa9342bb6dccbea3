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
	"time"

	azto "github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/appservice/armappservice/v4"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/trafficmanager/armtrafficmanager"
	"github.com/Azure/go-autorest/autorest/to"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/klog"
)

const endpointType = armtrafficmanager.EndpointTypeAzureEndpoints

var (
	endpointPollInterval = 5 * time.Second
	endpointPollTimeout  = time.Minute
)

func (d *Deployer) createTrafficManager(ctx context.Context, sites []armappservice.Site) (armtrafficmanager.Profile, error) {
	rg := d.names.resourceGroup
	name := d.names.trafficManager

	klog.Infof("Creating a traffic manager profile %s for the web apps...", name)
	profile, err := d.cloud.CreateProfile(ctx, rg, name, armtrafficmanager.Profile{
		Location: to.StringPtr("global"),
		Properties: &armtrafficmanager.ProfileProperties{
			MonitorConfig: &armtrafficmanager.MonitorConfig{
				Protocol:                  azto.Ptr(armtrafficmanager.MonitorProtocolHTTP),
				Port:                      to.Int64Ptr(80),
				Path:                      to.StringPtr("/testpath.aspx"),
				IntervalInSeconds:         to.Int64Ptr(10),
				TimeoutInSeconds:          to.Int64Ptr(5),
				ToleratedNumberOfFailures: to.Int64Ptr(2),
			},
			DNSConfig: &armtrafficmanager.DNSConfig{
				RelativeName: to.StringPtr(name),
			},
			TrafficRoutingMethod: azto.Ptr(armtrafficmanager.TrafficRoutingMethodPriority),
			ProfileStatus:        azto.Ptr(armtrafficmanager.ProfileStatusEnabled),
		},
	})
	if err != nil {
		return armtrafficmanager.Profile{}, fmt.Errorf("failed to create traffic manager profile %q: %v", name, err)
	}

	// priorities start at 1 and follow the order of the web apps
	for i, site := range sites {
		priority := int64(i + 1)
		epName := endpointName(priority)
		ep, err := d.cloud.CreateEndpoint(ctx, rg, name, endpointType, epName, armtrafficmanager.Endpoint{
			Name: to.StringPtr(epName),
			Properties: &armtrafficmanager.EndpointProperties{
				TargetResourceID: site.ID,
				Priority:         to.Int64Ptr(priority),
			},
		})
		if err != nil {
			return armtrafficmanager.Profile{}, fmt.Errorf("failed to create endpoint %q: %v", epName, err)
		}
		if profile.Properties != nil {
			profile.Properties.Endpoints = append(profile.Properties.Endpoints, &ep)
		}
	}

	klog.Infof("Created traffic manager %s", to.String(profile.Name))
	printProfile(profile)
	return profile, nil
}

// getEndpoint reads an endpoint, retrying while it is not visible yet.
func (d *Deployer) getEndpoint(ctx context.Context, name string) (armtrafficmanager.Endpoint, error) {
	var ep armtrafficmanager.Endpoint
	err := wait.PollImmediate(endpointPollInterval, endpointPollTimeout, func() (done bool, err error) {
		ep, err = d.cloud.GetEndpoint(ctx, d.names.resourceGroup, d.names.trafficManager, endpointType, name)
		if err != nil {
			if isNotFound(err) {
				klog.Infof("Endpoint %q not found yet, retrying", name)
				return false, nil
			}
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return armtrafficmanager.Endpoint{}, fmt.Errorf("failed to get endpoint %q of profile %q: %v", name, d.names.trafficManager, err)
	}
	return ep, nil
}

func (d *Deployer) setEndpointStatus(ctx context.Context, name string, status armtrafficmanager.EndpointStatus) (armtrafficmanager.Endpoint, error) {
	if _, err := d.getEndpoint(ctx, name); err != nil {
		return armtrafficmanager.Endpoint{}, err
	}
	ep, err := d.cloud.UpdateEndpoint(ctx, d.names.resourceGroup, d.names.trafficManager, endpointType, name, armtrafficmanager.Endpoint{
		Properties: &armtrafficmanager.EndpointProperties{
			EndpointStatus: azto.Ptr(status),
		},
	})
	if err != nil {
		return armtrafficmanager.Endpoint{}, fmt.Errorf("failed to set status of endpoint %q to %s: %v", name, status, err)
	}
	return ep, nil
}

func (d *Deployer) deleteEndpoint(ctx context.Context, name string) error {
	if _, err := d.getEndpoint(ctx, name); err != nil {
		return err
	}
	if err := d.cloud.DeleteEndpoint(ctx, d.names.resourceGroup, d.names.trafficManager, endpointType, name); err != nil {
		return fmt.Errorf("failed to delete endpoint %q: %v", name, err)
	}
	return nil
}

func (d *Deployer) updateProfile(ctx context.Context, props armtrafficmanager.ProfileProperties) (armtrafficmanager.Profile, error) {
	profile, err := d.cloud.UpdateProfile(ctx, d.names.resourceGroup, d.names.trafficManager, armtrafficmanager.Profile{
		Properties: &props,
	})
	if err != nil {
		return armtrafficmanager.Profile{}, fmt.Errorf("failed to update traffic manager profile %q: %v", d.names.trafficManager, err)
	}
	return profile, nil
}

// mutateTrafficManager walks the profile through its scripted changes. Each
// step is a separate update; nothing is rolled back when a later one fails.
func (d *Deployer) mutateTrafficManager(ctx context.Context, profile armtrafficmanager.Profile) error {
	klog.Infof("Disabling and removing endpoint...")
	if _, err := d.setEndpointStatus(ctx, endpointName(1), armtrafficmanager.EndpointStatusDisabled); err != nil {
		return err
	}
	if err := d.deleteEndpoint(ctx, endpointName(2)); err != nil {
		return err
	}
	klog.Infof("Endpoints updated")

	klog.Infof("Enabling endpoint...")
	ep, err := d.setEndpointStatus(ctx, endpointName(1), armtrafficmanager.EndpointStatusEnabled)
	if err != nil {
		return err
	}
	klog.Infof("Endpoint updated")
	if ep.Properties != nil {
		klog.Infof("The current endpoint status is: %s", enumString(ep.Properties.EndpointStatus))
	}

	klog.Infof("Changing traffic manager profile routing method...")
	if profile, err = d.updateProfile(ctx, armtrafficmanager.ProfileProperties{
		TrafficRoutingMethod: azto.Ptr(armtrafficmanager.TrafficRoutingMethodPerformance),
	}); err != nil {
		return err
	}
	klog.Infof("Changed traffic manager profile routing method")

	klog.Infof("Disabling traffic manager profile...")
	if profile, err = d.updateProfile(ctx, armtrafficmanager.ProfileProperties{
		ProfileStatus: azto.Ptr(armtrafficmanager.ProfileStatusDisabled),
	}); err != nil {
		return err
	}
	klog.Infof("Traffic manager profile disabled")

	klog.Infof("Enabling traffic manager profile...")
	if profile, err = d.updateProfile(ctx, armtrafficmanager.ProfileProperties{
		ProfileStatus: azto.Ptr(armtrafficmanager.ProfileStatusEnabled),
	}); err != nil {
		return err
	}
	klog.Infof("Traffic manager profile enabled")
	printProfile(profile)
	return nil
}

func (d *Deployer) deleteTrafficManager(ctx context.Context) error {
	klog.Infof("Deleting the traffic manager profile...")
	if err := d.cloud.DeleteProfile(ctx, d.names.resourceGroup, d.names.trafficManager); err != nil {
		return fmt.Errorf("failed to delete traffic manager profile %q: %v", d.names.trafficManager, err)
	}
	klog.Infof("Traffic manager profile deleted")
	return nil
}
