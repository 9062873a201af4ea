package browser

import (
	"encoding/json"
	"fmt"
)

// buildExtractScript generates the in-page extraction script for a spec.
// The script mirrors how a person scans a results page: find the first
// container selector that matches anything, then for each card try the
// field selectors in order until one yields text.
func buildExtractScript(spec SelectorSpec) (string, error) {
	if len(spec.Containers) == 0 {
		return "", fmt.Errorf("selector spec has no container selectors")
	}
	limit := spec.Limit
	if limit <= 0 {
		limit = 50
	}

	containers, err := json.Marshal(spec.Containers)
	if err != nil {
		return "", err
	}
	fields, err := json.Marshal(spec.Fields)
	if err != nil {
		return "", err
	}
	linkField, err := json.Marshal(spec.LinkField)
	if err != nil {
		return "", err
	}

	script := fmt.Sprintf(`
(() => {
	const containerSelectors = %s;
	const fieldSelectors = %s;
	const linkField = %s;
	const limit = %d;

	let cards = [];
	for (const sel of containerSelectors) {
		const found = document.querySelectorAll(sel);
		if (found.length > 0) {
			cards = found;
			break;
		}
	}

	const items = [];
	cards.forEach((card, index) => {
		if (index >= limit) return;
		const item = {};

		for (const [field, selectors] of Object.entries(fieldSelectors)) {
			item[field] = '';
			for (const sel of selectors) {
				const el = card.querySelector(sel);
				if (el && el.textContent.trim()) {
					item[field] = el.textContent.trim();
					if (field === linkField) {
						const link = el.closest('a') || el.querySelector('a') || (el.href ? el : null);
						if (link && link.href) {
							item[field + '_url'] = link.href;
						}
					}
					break;
				}
			}
		}

		if (linkField && !item[linkField + '_url']) {
			const link = card.querySelector('a[href]');
			if (link && link.href) {
				item[linkField + '_url'] = link.href;
			}
		}

		// Card-level data attributes ride along for free.
		for (const attr of card.attributes) {
			if (attr.name.startsWith('data-') && attr.value) {
				item[attr.name] = attr.value;
			}
		}

		items.push(item);
	});
	return items;
})()
`, containers, fields, linkField, limit)
	return script, nil
}
