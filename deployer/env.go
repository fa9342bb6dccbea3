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
	"io/fs"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armsubscriptions"
	"github.com/Azure/go-autorest/autorest/to"
	"github.com/joho/godotenv"
	"k8s.io/klog"
)

const (
	authBrowser      = "browser"
	authClientSecret = "client-secret"
	authDefault      = "default"
)

// credentials holds the service principal and subscription settings read
// from the environment.
type credentials struct {
	clientID       string
	clientSecret   string
	tenantID       string
	subscriptionID string
}

// loadCredentials reads CLIENT_ID, CLIENT_SECRET, TENANT_ID and
// SUBSCRIPTION_ID. Values set in the process environment win over the ones in
// envFile; a missing envFile is not an error.
func loadCredentials(envFile string) (credentials, error) {
	fileEnv := map[string]string{}
	if envFile != "" {
		var err error
		fileEnv, err = godotenv.Read(envFile)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return credentials{}, fmt.Errorf("failed to read env file %q: %v", envFile, err)
			}
			klog.Infof("Env file %q not found, using the process environment only", envFile)
			fileEnv = map[string]string{}
		}
	}
	lookup := func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fileEnv[key]
	}
	return credentials{
		clientID:       lookup("CLIENT_ID"),
		clientSecret:   lookup("CLIENT_SECRET"),
		tenantID:       lookup("TENANT_ID"),
		subscriptionID: lookup("SUBSCRIPTION_ID"),
	}, nil
}

// newCredential builds the token credential for the given auth mode. The
// browser mode is the default because buying a domain is refused for most
// service principals.
func newCredential(mode string, c credentials) (azcore.TokenCredential, error) {
	switch mode {
	case authBrowser, "":
		return azidentity.NewInteractiveBrowserCredential(&azidentity.InteractiveBrowserCredentialOptions{
			TenantID: c.tenantID,
			ClientID: c.clientID,
		})
	case authClientSecret:
		if c.clientID == "" || c.clientSecret == "" || c.tenantID == "" {
			return nil, fmt.Errorf("auth mode %q needs CLIENT_ID, CLIENT_SECRET and TENANT_ID", mode)
		}
		return azidentity.NewClientSecretCredential(c.tenantID, c.clientID, c.clientSecret, nil)
	case authDefault:
		return azidentity.NewDefaultAzureCredential(nil)
	default:
		return nil, fmt.Errorf("auth mode %q not supported", mode)
	}
}

// resolveSubscription returns subscriptionID when set and otherwise the first
// enabled subscription visible to the credential.
func resolveSubscription(ctx context.Context, subscriptionID string, credential azcore.TokenCredential) (string, error) {
	if subscriptionID != "" {
		return subscriptionID, nil
	}
	client, err := armsubscriptions.NewClient(credential, nil)
	if err != nil {
		return "", fmt.Errorf("failed to new subscriptions client: %v", err)
	}
	pager := client.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to list subscriptions: %v", err)
		}
		for _, sub := range page.Value {
			if sub == nil || sub.SubscriptionID == nil {
				continue
			}
			if sub.State != nil && *sub.State != armsubscriptions.SubscriptionStateEnabled {
				continue
			}
			klog.Infof("Using default subscription %q (%s)", *sub.SubscriptionID, to.String(sub.DisplayName))
			return *sub.SubscriptionID, nil
		}
	}
	return "", errors.New("no enabled subscription found, set SUBSCRIPTION_ID")
}
