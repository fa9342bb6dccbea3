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
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/appservice/armappservice/v4"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/trafficmanager/armtrafficmanager"
	"github.com/Azure/go-autorest/autorest/to"
	"k8s.io/klog"
)

// resourceGroupOf returns the resource group segment of an ARM resource id.
func resourceGroupOf(id *string) string {
	parsed, err := arm.ParseResourceID(to.String(id))
	if err != nil {
		return ""
	}
	return parsed.ResourceGroupName
}

func enumString[T ~string](v *T) string {
	if v == nil {
		return ""
	}
	return string(*v)
}

type summary struct {
	b strings.Builder
}

func newSummary(kind string, id *string) *summary {
	s := &summary{}
	s.b.WriteString(kind)
	s.b.WriteString(": ")
	s.b.WriteString(to.String(id))
	return s
}

func (s *summary) field(name, value string) *summary {
	s.b.WriteString("\n\t")
	s.b.WriteString(name)
	s.b.WriteString(": ")
	s.b.WriteString(value)
	return s
}

func (s *summary) log() {
	klog.Info(s.b.String())
}

func printDomain(domain armappservice.Domain) {
	newSummary("Domain", domain.ID).
		field("Name", to.String(domain.Name)).
		field("Resource group", resourceGroupOf(domain.ID)).
		field("Region", to.String(domain.Location)).
		log()
}

func printPlan(plan armappservice.Plan) {
	s := newSummary("App service plan", plan.ID).
		field("Name", to.String(plan.Name)).
		field("Resource group", resourceGroupOf(plan.ID)).
		field("Region", to.String(plan.Location))
	if plan.SKU != nil {
		s.field("Sku", to.String(plan.SKU.Name)).
			field("Tier", to.String(plan.SKU.Tier)).
			field("Size", to.String(plan.SKU.Size))
	}
	s.log()
}

func printWebApp(site armappservice.Site) {
	var planID *string
	if site.Properties != nil {
		planID = site.Properties.ServerFarmID
	}
	newSummary("Web app", site.ID).
		field("Name", to.String(site.Name)).
		field("Resource group", resourceGroupOf(site.ID)).
		field("Region", to.String(site.Location)).
		field("App service plan", to.String(planID)).
		log()
}

func printProfile(profile armtrafficmanager.Profile) {
	s := newSummary("Traffic manager", profile.ID).
		field("Name", to.String(profile.Name)).
		field("Resource group", resourceGroupOf(profile.ID)).
		field("Region", to.String(profile.Location))
	if p := profile.Properties; p != nil {
		s.field("Routing method", enumString(p.TrafficRoutingMethod)).
			field("Status", enumString(p.ProfileStatus))
		if p.DNSConfig != nil {
			s.field("FQDN", to.String(p.DNSConfig.Fqdn))
		}
		for _, ep := range p.Endpoints {
			if ep == nil || ep.Properties == nil {
				continue
			}
			s.field("Endpoint "+to.String(ep.Name), enumString(ep.Properties.EndpointStatus))
		}
	}
	s.log()
}
