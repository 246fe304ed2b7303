package compiler

// partCUE declares the box -> pad -> round part used across the tests.
const partCUE = `
document: part: {
	policy: {
		strict_topology_policy: true
		tolerance: {centroid_um: 5, min_dot_ppm: 998000, extent_permille: 20}
	}
	features: [
		{id: "box", operation_kind: "primitive", parameters: {size: 10}},
		{
			id:             "pad"
			operation_kind: "extrude"
			parameters: {depth: 20, taper: {enabled: false, steps: [1, 2]}}
			inputs: ["box"]
			reference_slots: [{
				name:   "profile"
				source: "box"
				refs: [{
					reference_kind: "Face"
					shape_identity: "F:box_top"
					local_index:    0
					geometric_fingerprint: {cz: 10000, nz: 1000000, extent: 100000000}
				}]
			}]
		},
		{
			id:             "round"
			operation_kind: "fillet"
			parameters: {radius: 1}
			inputs: ["pad"]
			reference_slots: [{
				name:   "edges"
				source: "pad"
				refs: [{
					reference_kind: "Edge"
					local_index:    0
					geometric_fingerprint: {cx: 5000, cz: 30000, nx: 1000000, extent: 10000}
				}]
			}]
		},
	]
}
`
