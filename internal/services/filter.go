package services

import "sales-dashboard/internal/models"

// Filter returns the records whose region and category are both selected,
// in dataset order.
func Filter(ds *models.Dataset, sel models.FilterSelection) models.FilteredView {
	view := models.FilteredView{Records: make([]models.Record, 0)}
	if ds == nil {
		return view
	}

	for _, r := range ds.Records {
		if sel.AllowsRegion(r.Region) && sel.AllowsCategory(r.Category) {
			view.Records = append(view.Records, r)
		}
	}
	return view
}
