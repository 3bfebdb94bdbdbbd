package browser

import (
	"fmt"

	"leaveplan/internal/grid"
)

// snapshotJS collects the displayed month in the shape of grid.Page. Boxes
// are page coordinates (scroll included) so they compare across rows.
var snapshotJS = fmt.Sprintf(`(() => {
  const box = (el) => {
    const r = el.getBoundingClientRect();
    return { x: r.left + window.scrollX, width: r.width };
  };
  const styleWidth = (el) => {
    const m = /width:\s*([\d.]+)px/.exec(el.getAttribute('style') || '');
    return m ? parseFloat(m[1]) : 0;
  };
  const label = document.querySelector(%[1]q);
  const rows = Array.from(document.querySelectorAll(%[2]q)).map((row) => {
    const nameCell = row.querySelector(%[3]q);
    const corp = row.hasAttribute(%[4]q) ? row : row.querySelector(%[5]q);
    const cells = Array.from(row.querySelectorAll(%[6]q));
    const line = row.querySelector(%[7]q);
    const elements = line ? Array.from(line.querySelectorAll(%[8]q)) : [];
    return {
      name: nameCell ? nameCell.innerText.trim() : '',
      corpId: corp ? (corp.getAttribute(%[4]q) || '') : '',
      cellWidths: cells.map(styleWidth),
      cellBoxes: cells.map(box),
      lineWidth: line ? line.offsetWidth : 0,
      elements: elements.map((el) => ({
        class: el.getAttribute('class') || '',
        title: el.getAttribute('title') || '',
        style: el.getAttribute('style') || '',
        box: box(el),
      })),
    };
  });
  const markers = Array.from(document.querySelectorAll(%[9]q))
    .map((el) => el.getAttribute('class') || '');
  return { monthLabel: label ? label.textContent.trim() : '', rows, markers };
})()`,
	grid.SelMonthLabel,
	grid.SelRow,
	grid.SelNameCell,
	grid.AttrCorpID,
	grid.SelCorpID,
	grid.SelDayCell,
	grid.SelLine,
	grid.SelEvent,
	grid.SelMarker,
)
