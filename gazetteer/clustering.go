// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package gazetteer

// ClusterRecords groups records whose coordinates lie within
// distanceThreshold meters of some member of the group. Records without
// coordinates are ignored. Groups keep the input order of their members;
// singletons are dropped unless keepSingletons is set.
func ClusterRecords(records []*Record, distanceThreshold float64, keepSingletons bool) [][]*Record {
	located := make([]*Record, 0, len(records))

	for _, r := range records {
		if r.Point != nil {
			located = append(located, r)
		}
	}

	clusters := make([][]*Record, 0, len(located))
	visited := make([]bool, len(located))

	for i, r1 := range located {
		if visited[i] {
			continue
		}

		cluster := []*Record{r1}
		visited[i] = true

		// grow until no unvisited record is close to any member
		for grown := true; grown; {
			grown = false

			for j, r2 := range located {
				if visited[j] {
					continue
				}

				for _, member := range cluster {
					if r2.Point.HaversineDistance(member.Point) <= distanceThreshold {
						cluster = append(cluster, r2)
						visited[j] = true
						grown = true

						break
					}
				}
			}
		}

		if len(cluster) > 1 || keepSingletons {
			clusters = append(clusters, cluster)
		}
	}

	return clusters
}
