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
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/Azure/go-autorest/autorest/to"
	"k8s.io/klog"
)

// Contact details registered with the purchased domain.
const (
	contactEmail        = "jondoe@contoso.com"
	contactFirstName    = "Jon"
	contactLastName     = "Doe"
	contactPhone        = "+1.12455342242"
	contactOrganization = "Microsoft Inc."
	contactAddress      = "123 4th Ave"
	contactCity         = "Redmond"
	contactState        = "WA"
	contactPostalCode   = "98052"
	contactCountry      = "US"

	consentAgreedBy = "100.64.152.221"
	consentKey      = "agreementKey1"
)

func (d *Deployer) createResourceGroup(ctx context.Context) error {
	klog.Infof("Creating resource group %q...", d.names.resourceGroup)
	param := armresources.ResourceGroup{
		Location: to.StringPtr(d.Location),
	}
	group, err := d.cloud.CreateResourceGroup(ctx, d.names.resourceGroup, param)
	if err != nil {
		return err
	}
	d.resourceGroupCreated = true
	klog.Infof("Resource group %s created", to.String(group.ID))
	return nil
}

func domainContact(jobTitle string) *armappservice.Contact {
	return &armappservice.Contact{
		Email:        to.StringPtr(contactEmail),
		NameFirst:    to.StringPtr(contactFirstName),
		NameLast:     to.StringPtr(contactLastName),
		Phone:        to.StringPtr(contactPhone),
		JobTitle:     to.StringPtr(jobTitle),
		Organization: to.StringPtr(contactOrganization),
		AddressMailing: &armappservice.Address{
			Address1:   to.StringPtr(contactAddress),
			City:       to.StringPtr(contactCity),
			Country:    to.StringPtr(contactCountry),
			PostalCode: to.StringPtr(contactPostalCode),
			State:      to.StringPtr(contactState),
		},
	}
}

// purchaseDomain buys the run's domain. The purchase is cancelled for a full
// refund when the resource group is deleted.
func (d *Deployer) purchaseDomain(ctx context.Context) (armappservice.Domain, error) {
	klog.Infof("Purchasing a domain %s...", d.names.domain)
	param := armappservice.Domain{
		Location: to.StringPtr("global"),
		Properties: &armappservice.DomainProperties{
			ContactRegistrant: domainContact("Registrant"),
			ContactAdmin:      domainContact("Admin"),
			ContactBilling:    domainContact("Billing"),
			ContactTech:       domainContact("Tech"),
			Privacy:           to.BoolPtr(true),
			AutoRenew:         to.BoolPtr(false),
			Consent: &armappservice.DomainPurchaseConsent{
				AgreedBy:      to.StringPtr(consentAgreedBy),
				AgreementKeys: []*string{to.StringPtr(consentKey)},
				AgreedAt:      azto.Ptr(time.Now()),
			},
		},
	}
	domain, err := d.cloud.CreateDomain(ctx, d.names.resourceGroup, d.names.domain, param)
	if err != nil {
		return armappservice.Domain{}, err
	}
	klog.Infof("Purchased domain %s", to.String(domain.Name))
	printDomain(domain)
	return domain, nil
}

// createPlans creates one Basic app service plan per region, in order.
func (d *Deployer) createPlans(ctx context.Context) ([]armappservice.Plan, error) {
	plans := make([]armappservice.Plan, 0, len(d.Regions))
	for i, region := range d.Regions {
		name := d.names.plan(i)
		klog.Infof("Creating an app service plan %s in region %s...", name, region)
		param := armappservice.Plan{
			Location: to.StringPtr(region),
			SKU: &armappservice.SKUDescription{
				Name: to.StringPtr("B1"),
				Tier: to.StringPtr("Basic"),
				Size: to.StringPtr("B1"),
			},
		}
		plan, err := d.cloud.CreatePlan(ctx, d.names.resourceGroup, name, param)
		if err != nil {
			return nil, fmt.Errorf("failed to create app service plan %q: %v", name, err)
		}
		klog.Infof("Created app service plan %s", name)
		printPlan(plan)
		plans = append(plans, plan)
	}
	return plans, nil
}

// createWebApp creates the i-th web app on plan, binds its host name under
// domain, uploads the certificate for that host name and hooks up source
// control.
func (d *Deployer) createWebApp(ctx context.Context, i int, plan armappservice.Plan, domain armappservice.Domain, pfx []byte) (armappservice.Site, error) {
	rg := d.names.resourceGroup
	name := d.names.webApp(i)
	hostName := name + "." + to.String(domain.Name)

	klog.Infof("Creating a web app %s using the plan %s...", name, to.String(plan.Name))
	site, err := d.cloud.CreateWebApp(ctx, rg, name, armappservice.Site{
		Location: plan.Location,
		Properties: &armappservice.SiteProperties{
			ServerFarmID: plan.ID,
			SiteConfig: &armappservice.SiteConfig{
				WindowsFxVersion:    to.StringPtr("PricingTier.StandardS1"),
				NetFrameworkVersion: to.StringPtr("v4.6"),
			},
		},
	})
	if err != nil {
		return armappservice.Site{}, fmt.Errorf("failed to create web app %q: %v", name, err)
	}

	_, err = d.cloud.CreateHostNameBinding(ctx, rg, name, hostName, armappservice.HostNameBinding{
		Properties: &armappservice.HostNameBindingProperties{
			HostNameType:                azto.Ptr(armappservice.HostNameTypeManaged),
			SiteName:                    site.Name,
			DomainID:                    domain.ID,
			SSLState:                    azto.Ptr(armappservice.SSLStateSniEnabled),
			CustomHostNameDNSRecordType: azto.Ptr(armappservice.CustomHostNameDNSRecordTypeCName),
		},
	})
	if err != nil {
		return armappservice.Site{}, fmt.Errorf("failed to bind host name %q to web app %q: %v", hostName, name, err)
	}

	_, err = d.cloud.CreateCertificate(ctx, rg, hostName, armappservice.AppCertificate{
		Location: plan.Location,
		Properties: &armappservice.AppCertificateProperties{
			HostNames:    []*string{to.StringPtr(hostName)},
			Password:     to.StringPtr(d.CertPassword),
			PfxBlob:      pfx,
			ServerFarmID: plan.ID,
		},
	})
	if err != nil {
		return armappservice.Site{}, fmt.Errorf("failed to upload certificate for %q: %v", hostName, err)
	}

	_, err = d.cloud.CreateSourceControl(ctx, rg, name, armappservice.SiteSourceControl{
		Properties: &armappservice.SiteSourceControlProperties{
			RepoURL:             to.StringPtr(d.RepoURL),
			Branch:              to.StringPtr(d.Branch),
			IsManualIntegration: to.BoolPtr(true),
			IsMercurial:         to.BoolPtr(false),
		},
	})
	if err != nil {
		return armappservice.Site{}, fmt.Errorf("failed to configure source control of web app %q: %v", name, err)
	}

	klog.Infof("Created web app %s", name)
	printWebApp(site)
	return site, nil
}

// Up creates every resource in dependency order, runs the traffic manager
// state changes and deletes the profile. It stops at the first error; the
// resource group is left for Down.
func (d *Deployer) Up(ctx context.Context) error {
	if err := d.createResourceGroup(ctx); err != nil {
		return fmt.Errorf("failed to create the resource group: %v", err)
	}

	domain, err := d.purchaseDomain(ctx)
	if err != nil {
		return fmt.Errorf("failed to purchase domain %q: %v", d.names.domain, err)
	}

	pfx, err := d.certificate(d.names.domain)
	if err != nil {
		return fmt.Errorf("failed to create the certificate: %v", err)
	}

	plans, err := d.createPlans(ctx)
	if err != nil {
		return err
	}

	sites := make([]armappservice.Site, 0, len(plans))
	for i, plan := range plans {
		site, err := d.createWebApp(ctx, i, plan, domain, pfx)
		if err != nil {
			return err
		}
		sites = append(sites, site)
	}

	profile, err := d.createTrafficManager(ctx, sites)
	if err != nil {
		return err
	}
	if err := d.mutateTrafficManager(ctx, profile); err != nil {
		return err
	}
	return d.deleteTrafficManager(ctx)
}
