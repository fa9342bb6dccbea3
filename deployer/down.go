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

	"k8s.io/klog"
)

// Down deletes the resource group and everything created in it.
func (d *Deployer) Down(ctx context.Context) error {
	klog.Infof("Deleting resource group %q", d.names.resourceGroup)
	if err := d.cloud.DeleteResourceGroup(ctx, d.names.resourceGroup); err != nil {
		return fmt.Errorf("failed to delete resource group %q: %v", d.names.resourceGroup, err)
	}
	d.resourceGroupCreated = false
	klog.Infof("Resource group %q deleted", d.names.resourceGroup)
	return nil
}
