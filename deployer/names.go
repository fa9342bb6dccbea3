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
	"math/rand"
)

const (
	defaultCertPassword = "azure12345QWE!"

	// maxNameSuffix bounds the random suffix appended by randomName.
	maxNameSuffix = 9999
)

// resourceNames are the generated names of one run.
type resourceNames struct {
	resourceGroup  string
	domain         string
	planPrefix     string
	webAppPrefix   string
	trafficManager string
}

func randomName(prefix string) string {
	return fmt.Sprintf("%s%d", prefix, rand.Intn(maxNameSuffix))
}

func newResourceNames() resourceNames {
	return resourceNames{
		resourceGroup:  randomName("rgNEMV_"),
		domain:         randomName("jsdkdemo-") + ".com",
		planPrefix:     randomName("jplan1_"),
		webAppPrefix:   randomName("webapp1-") + "-",
		trafficManager: randomName("jsdktm-"),
	}
}

func (n resourceNames) plan(i int) string {
	return fmt.Sprintf("%s%d", n.planPrefix, i)
}

func (n resourceNames) webApp(i int) string {
	return fmt.Sprintf("%s%d", n.webAppPrefix, i)
}

// endpoint names are 1-based and match the endpoint priority.
func endpointName(priority int64) string {
	return fmt.Sprintf("endpoint-%d", priority)
}
